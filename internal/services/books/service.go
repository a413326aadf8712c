package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oktntko/book-share/internal/domain/model"
)

const defaultCacheTTL = 6 * time.Hour

// Cache holds serialized catalog volumes keyed by ISBN.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Fetcher interface {
	FetchVolume(ctx context.Context, isbn string) (volumeInfo, error)
}

type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewService(fetcher Fetcher, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// cachedVolume wraps the catalog answer so known-missing ISBNs are cached
// too, not re-queried on every read.
type cachedVolume struct {
	Found bool       `json:"found"`
	Book  model.Book `json:"book,omitempty"`
}

// Lookup resolves one ISBN, cache first.
func (s *Service) Lookup(ctx context.Context, isbn string) (model.Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return model.Book{}, fmt.Errorf("isbn is required")
	}
	if s.fetcher == nil {
		return model.Book{}, fmt.Errorf("catalog fetcher is nil")
	}

	if book, found, hit := s.readCache(ctx, isbn); hit {
		if !found {
			return model.Book{}, ErrVolumeNotFound
		}
		return book, nil
	}

	info, err := s.fetcher.FetchVolume(ctx, isbn)
	if errors.Is(err, ErrVolumeNotFound) {
		s.writeCache(ctx, isbn, cachedVolume{Found: false})
		return model.Book{}, ErrVolumeNotFound
	}
	if err != nil {
		return model.Book{}, err
	}

	book := model.Book{
		ISBN:          isbn,
		Title:         info.Title,
		Authors:       info.Authors,
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
		Description:   info.Description,
		ThumbnailURL:  info.ImageLinks.Thumbnail,
		PageCount:     info.PageCount,
	}
	s.writeCache(ctx, isbn, cachedVolume{Found: true, Book: book})

	return book, nil
}

// LookupMany resolves a batch of ISBNs. Unknown ISBNs are left out of the
// result; only transport failures surface as errors.
func (s *Service) LookupMany(ctx context.Context, isbns []string) (map[string]model.Book, error) {
	out := make(map[string]model.Book, len(isbns))
	for _, isbn := range isbns {
		isbn = strings.TrimSpace(isbn)
		if isbn == "" {
			continue
		}
		if _, done := out[isbn]; done {
			continue
		}

		book, err := s.Lookup(ctx, isbn)
		if errors.Is(err, ErrVolumeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
		}
		out[isbn] = book
	}
	return out, nil
}

// readCache reports (book, found-in-catalog, cache-hit). Cache failures are
// logged and read as misses.
func (s *Service) readCache(ctx context.Context, isbn string) (model.Book, bool, bool) {
	if s.cache == nil {
		return model.Book{}, false, false
	}

	raw, hit, err := s.cache.Get(ctx, isbn)
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.String("isbn", isbn), zap.Error(err))
		return model.Book{}, false, false
	}
	if !hit {
		return model.Book{}, false, false
	}

	var cached cachedVolume
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn("catalog cache entry is corrupt", zap.String("isbn", isbn), zap.Error(err))
		return model.Book{}, false, false
	}

	return cached.Book, cached.Found, true
}

func (s *Service) writeCache(ctx context.Context, isbn string, entry cachedVolume) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, isbn, raw, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("isbn", isbn), zap.Error(err))
	}
}
