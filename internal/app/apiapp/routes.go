package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oktntko/book-share/internal/config"
	authsvc "github.com/oktntko/book-share/internal/services/auth"
	booksvc "github.com/oktntko/book-share/internal/services/books"
	filesvc "github.com/oktntko/book-share/internal/services/files"
	postsvc "github.com/oktntko/book-share/internal/services/posts"
	recordsvc "github.com/oktntko/book-share/internal/services/records"
	sessionsvc "github.com/oktntko/book-share/internal/services/session"
	usersvc "github.com/oktntko/book-share/internal/services/users"
	"github.com/oktntko/book-share/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService   *authsvc.Service
	UserService   *usersvc.Service
	PostService   *postsvc.Service
	RecordService *recordsvc.Service
	FileService   *filesvc.Service
	BookService   *booksvc.Service
	SessionStore  *sessionsvc.Store
	Logger        *zap.Logger
	Config        config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.UserService)
	usersHandler := handlers.NewUsersHandler(deps.UserService)
	postsHandler := handlers.NewPostsHandler(deps.PostService)
	recordsHandler := handlers.NewRecordsHandler(deps.RecordService)
	filesHandler := handlers.NewFilesHandler(deps.FileService)
	booksHandler := handlers.NewBooksHandler(deps.BookService)

	sessionMW := SessionMiddleware(deps.SessionStore, deps.UserService, deps.Logger)
	userMW := RequireUser()

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.With(sessionMW).Post("/signout", authHandler.SignOut)
		r.With(sessionMW).Post("/refresh", authHandler.Refresh)
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(sessionMW, userMW)
		r.Get("/", usersHandler.Me)
		r.Put("/", usersHandler.UpdateMe)
		r.Post("/deactivate", usersHandler.DeactivateMe)
		r.Route("/2fa", func(r chi.Router) {
			r.Post("/enroll", usersHandler.TwoFactorEnroll)
			r.Post("/confirm", usersHandler.TwoFactorConfirm)
			r.Post("/disable", usersHandler.TwoFactorDisable)
		})
	})

	r.Route("/posts", func(r chi.Router) {
		r.With(sessionMW).Get("/", postsHandler.List)
		r.With(sessionMW).Get("/{id}", postsHandler.Get)
		r.With(sessionMW, userMW).Post("/", postsHandler.Create)
		r.With(sessionMW, userMW).Put("/{id}", postsHandler.Update)
		r.With(sessionMW, userMW).Delete("/{id}", postsHandler.Delete)
	})

	r.Route("/records", func(r chi.Router) {
		r.Use(sessionMW, userMW)
		r.Get("/", recordsHandler.List)
		r.Post("/", recordsHandler.Create)
		r.Put("/{id}", recordsHandler.Update)
		r.Delete("/{id}", recordsHandler.Delete)
	})

	r.Route("/files", func(r chi.Router) {
		r.Use(sessionMW, userMW)
		r.Get("/", filesHandler.List)
		r.Post("/", filesHandler.Upload)
		r.Delete("/{id}", filesHandler.Delete)
	})

	r.Get("/books/{isbn}", booksHandler.Get)
}
