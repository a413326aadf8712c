package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/services/versioning"
)

var ErrValidation = errors.New("validation error")

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, userID int64, f pgrepo.PostFields) (model.Post, error)
	FindByID(ctx context.Context, id int64) (model.Post, error)
	FindForUser(ctx context.Context, tx pgx.Tx, postID, userID int64) (model.Post, error)
	List(ctx context.Context, f pgrepo.PostFilter) ([]model.Post, error)
	Update(ctx context.Context, tx pgx.Tx, postID, userID int64, claimed time.Time, f pgrepo.PostFields) (model.Post, error)
	Delete(ctx context.Context, tx pgx.Tx, postID, userID int64, claimed time.Time) (bool, error)
}

// Catalog resolves ISBNs against the external book catalog. Missing ISBNs are
// simply absent from the result, never an error.
type Catalog interface {
	LookupMany(ctx context.Context, isbns []string) (map[string]model.Book, error)
}

// PostWithBook is a post joined with its catalog volume, when the catalog
// knows the ISBN.
type PostWithBook struct {
	model.Post
	Book *model.Book `json:"book,omitempty"`
}

type Service struct {
	store   Store
	catalog Catalog
	logger  *zap.Logger
	runTx   func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

func NewService(pool *pgxpool.Pool, store Store, catalog Catalog, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
	if pool != nil {
		svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}
	return svc
}

func (s *Service) Create(ctx context.Context, userID int64, f pgrepo.PostFields) (model.Post, error) {
	if userID <= 0 || strings.TrimSpace(f.ISBN) == "" || !f.Kind.Valid() {
		return model.Post{}, fmt.Errorf("invalid post payload: %w", ErrValidation)
	}
	if s.runTx == nil || s.store == nil {
		return model.Post{}, fmt.Errorf("post dependencies are not configured")
	}

	var created model.Post
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		post, err := s.store.Create(txCtx, tx, userID, f)
		if err != nil {
			return err
		}
		created = post
		return nil
	})
	if err != nil {
		return model.Post{}, err
	}

	return created, nil
}

func (s *Service) Get(ctx context.Context, postID int64) (PostWithBook, error) {
	if s.store == nil {
		return PostWithBook{}, fmt.Errorf("post store is nil")
	}

	post, err := s.store.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPostNotFound) {
			return PostWithBook{}, versioning.ErrNotFound
		}
		return PostWithBook{}, err
	}

	enriched := s.attachCatalog(ctx, []model.Post{post})
	return enriched[0], nil
}

func (s *Service) List(ctx context.Context, f pgrepo.PostFilter) ([]PostWithBook, error) {
	if s.store == nil {
		return nil, fmt.Errorf("post store is nil")
	}

	posts, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	return s.attachCatalog(ctx, posts), nil
}

// Update is a versioned mutation scoped to the owner: the ownership check and
// the write share one transaction.
func (s *Service) Update(ctx context.Context, postID, userID int64, claimed time.Time, f pgrepo.PostFields) (model.Post, error) {
	if postID <= 0 || userID <= 0 || claimed.IsZero() || !f.Kind.Valid() {
		return model.Post{}, fmt.Errorf("invalid post payload: %w", ErrValidation)
	}
	if s.runTx == nil || s.store == nil {
		return model.Post{}, fmt.Errorf("post dependencies are not configured")
	}

	var updated model.Post
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.Post, error) {
			post, err := s.store.FindForUser(c, tx, postID, userID)
			if errors.Is(err, pgrepo.ErrPostNotFound) {
				return model.Post{}, versioning.ErrNotFound
			}
			return post, err
		}); err != nil {
			return err
		}

		post, err := s.store.Update(txCtx, tx, postID, userID, claimed, f)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPostNotFound) {
				return versioning.ErrStaleWrite
			}
			return err
		}
		updated = post
		return nil
	})
	if err != nil {
		return model.Post{}, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, postID, userID int64, claimed time.Time) error {
	if postID <= 0 || userID <= 0 || claimed.IsZero() {
		return fmt.Errorf("invalid post lookup: %w", ErrValidation)
	}
	if s.runTx == nil || s.store == nil {
		return fmt.Errorf("post dependencies are not configured")
	}

	return s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.Post, error) {
			post, err := s.store.FindForUser(c, tx, postID, userID)
			if errors.Is(err, pgrepo.ErrPostNotFound) {
				return model.Post{}, versioning.ErrNotFound
			}
			return post, err
		}); err != nil {
			return err
		}

		ok, err := s.store.Delete(txCtx, tx, postID, userID, claimed)
		if err != nil {
			return err
		}
		if !ok {
			return versioning.ErrStaleWrite
		}
		return nil
	})
}

// attachCatalog joins posts with catalog volumes in one batched lookup. A
// catalog outage degrades to bare posts; reads never fail on enrichment.
func (s *Service) attachCatalog(ctx context.Context, posts []model.Post) []PostWithBook {
	out := make([]PostWithBook, 0, len(posts))
	for _, post := range posts {
		out = append(out, PostWithBook{Post: post})
	}
	if s.catalog == nil || len(posts) == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(posts))
	isbns := make([]string, 0, len(posts))
	for _, post := range posts {
		if _, dup := seen[post.ISBN]; dup || post.ISBN == "" {
			continue
		}
		seen[post.ISBN] = struct{}{}
		isbns = append(isbns, post.ISBN)
	}

	books, err := s.catalog.LookupMany(ctx, isbns)
	if err != nil {
		s.logger.Warn("catalog lookup failed, returning posts without volumes", zap.Error(err))
		return out
	}

	for i := range out {
		if book, ok := books[out[i].ISBN]; ok {
			b := book
			out[i].Book = &b
		}
	}
	return out
}
