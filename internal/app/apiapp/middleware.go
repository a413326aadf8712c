package apiapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/oktntko/book-share/internal/domain/model"
	authsvc "github.com/oktntko/book-share/internal/services/auth"
	sessionsvc "github.com/oktntko/book-share/internal/services/session"
	"github.com/oktntko/book-share/internal/services/versioning"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

type sessionGetter interface {
	Get(ctx context.Context, id string) (*model.Session, error)
}

type userResolver interface {
	GetProfile(ctx context.Context, userID int64) (model.User, error)
}

// SessionMiddleware resolves the session cookie into a request identity. It
// only reads: no session is created, renewed, or destroyed here. Anything
// short of a live session bound to an active user degrades to anonymous.
func SessionMiddleware(sessions sessionGetter, users userResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil || users == nil {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(sessionsvc.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				if log != nil {
					log.Warn("session lookup failed, serving request as anonymous", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil || sess.UserID == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetProfile(r.Context(), *sess.UserID)
			if err != nil {
				if !errors.Is(err, versioning.ErrNotFound) && log != nil {
					log.Warn("identity lookup failed, serving request as anonymous", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := authsvc.WithIdentity(r.Context(), authsvc.Identity{
				UserID:      user.ID,
				SID:         sess.ID,
				Email:       user.Email,
				DisplayName: user.DisplayName,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser gates routes that need an authenticated caller.
func RequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}
