package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oktntko/book-share/internal/config"
	"github.com/oktntko/book-share/internal/infra/httpclient"
	s3infra "github.com/oktntko/book-share/internal/infra/s3"
	"github.com/oktntko/book-share/internal/jobs/cleanup"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	redisrepo "github.com/oktntko/book-share/internal/repo/redis"
	"github.com/oktntko/book-share/internal/security"
	authsvc "github.com/oktntko/book-share/internal/services/auth"
	booksvc "github.com/oktntko/book-share/internal/services/books"
	filesvc "github.com/oktntko/book-share/internal/services/files"
	postsvc "github.com/oktntko/book-share/internal/services/posts"
	recordsvc "github.com/oktntko/book-share/internal/services/records"
	sessionsvc "github.com/oktntko/book-share/internal/services/session"
	usersvc "github.com/oktntko/book-share/internal/services/users"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	cleanupJob *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redisrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cacheRepo := redisrepo.NewCacheRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	postRepo := pgrepo.NewPostRepo(pool)
	recordRepo := pgrepo.NewReadingRecordRepo(pool)
	fileRepo := pgrepo.NewFileRepo(pool)
	sessionRepo := pgrepo.NewSessionRepo(pool)

	sessionStore := sessionsvc.NewStore(sessionRepo, sessionsvc.Config{
		TTL:     cfg.Session.TTL,
		Rolling: cfg.Session.Rolling,
	})

	var cipher *security.SecretCipher
	if c, err := security.NewSecretCipher(cfg.Security.CipherKey); err != nil {
		log.Warn("secret cipher init failed, two-factor auth is unavailable", zap.Error(err))
	} else {
		cipher = c
	}

	authService := authsvc.NewService(userRepo, sessionStore, cipher)
	userService := usersvc.NewService(usersvc.Dependencies{
		Pool:     pool,
		Store:    userRepo,
		Sessions: sessionStore,
		Cipher:   cipher,
		Issuer:   cfg.Security.TOTPIssuer,
	})

	var bookService *booksvc.Service
	var catalog postsvc.Catalog
	if client, err := booksvc.NewCatalogClient(cfg.Catalog.BaseURL, httpclient.New(cfg.Catalog.Timeout)); err != nil {
		log.Warn("catalog client init failed, continuing without book lookups", zap.Error(err))
	} else {
		bookService = booksvc.NewService(client, cacheRepo, cfg.Catalog.CacheTTL, log)
		catalog = bookService
	}

	postService := postsvc.NewService(pool, postRepo, catalog, log)
	recordService := recordsvc.NewService(pool, recordRepo)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	fileStorage := filesvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	fileService := filesvc.NewService(pool, fileRepo, fileStorage)

	RegisterRoutes(r, Dependencies{
		AuthService:   authService,
		UserService:   userService,
		PostService:   postService,
		RecordService: recordService,
		FileService:   fileService,
		BookService:   bookService,
		SessionStore:  sessionStore,
		Logger:        log,
		Config:        cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		cleanupJob: cleanup.New(sessionRepo, log),
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// RunCleanup blocks, sweeping expired sessions until the context is done.
func (a *App) RunCleanup(ctx context.Context) {
	a.cleanupJob.RunPeriodically(ctx, a.cfg.Cleanup.Interval)
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
