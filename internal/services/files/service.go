package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/services/versioning"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrFileTooBig  = errors.New("file exceeds size limit")
	ErrContentType = errors.New("unsupported content type")
)

const (
	signedURLTTL = 5 * time.Minute
	maxFileSize  = 10 << 20
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, userID int64, objectKey, fileName, contentType string, sizeBytes int64) (model.UploadedFile, error)
	FindForUser(ctx context.Context, tx pgx.Tx, fileID, userID int64) (model.UploadedFile, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]model.UploadedFile, error)
	Delete(ctx context.Context, tx pgx.Tx, fileID, userID int64, claimed time.Time) (bool, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store   Store
	storage ObjectStorage
	runTx   func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now     func() time.Time
}

// File is an upload record joined with a short-lived download URL.
type File struct {
	model.UploadedFile
	URL string `json:"url"`
}

func NewService(pool *pgxpool.Pool, store Store, storage ObjectStorage) *Service {
	svc := &Service{
		store:   store,
		storage: storage,
		now:     time.Now,
	}
	if pool != nil {
		svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}
	return svc
}

// Upload streams the body to object storage first, then records the row; a
// failed row write removes the orphaned object.
func (s *Service) Upload(ctx context.Context, userID int64, fileName, contentType string, body io.Reader, size int64) (File, error) {
	if s.runTx == nil || s.store == nil || s.storage == nil {
		return File{}, fmt.Errorf("file dependencies are not configured")
	}
	if userID <= 0 || body == nil || size <= 0 {
		return File{}, ErrValidation
	}
	if size > maxFileSize {
		return File{}, ErrFileTooBig
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return File{}, fmt.Errorf("%w: %s", ErrContentType, contentType)
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return File{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey := buildObjectKey(userID, fileName, s.now())
	if err := s.storage.Put(ctx, objectKey, body, size, contentType); err != nil {
		return File{}, fmt.Errorf("put object: %w", err)
	}

	var record model.UploadedFile
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := s.store.Create(txCtx, tx, userID, objectKey, fileName, contentType, size)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return File{}, fmt.Errorf("create file record: %w", err)
	}

	url, err := s.storage.PresignGet(ctx, record.ObjectKey, signedURLTTL)
	if err != nil {
		return File{}, fmt.Errorf("presign file url: %w", err)
	}

	return File{UploadedFile: record, URL: url}, nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]File, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil || s.storage == nil {
		return nil, fmt.Errorf("file dependencies are not configured")
	}

	records, err := s.store.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list file records: %w", err)
	}

	out := make([]File, 0, len(records))
	for _, rec := range records {
		url, err := s.storage.PresignGet(ctx, rec.ObjectKey, signedURLTTL)
		if err != nil {
			return nil, fmt.Errorf("presign file url: %w", err)
		}
		out = append(out, File{UploadedFile: rec, URL: url})
	}

	return out, nil
}

// Delete removes the row under a version check, then the object. A dangling
// object after a crash is reclaimed by lifecycle rules, not by this code.
func (s *Service) Delete(ctx context.Context, fileID, userID int64, claimed time.Time) error {
	if s.runTx == nil || s.store == nil || s.storage == nil {
		return fmt.Errorf("file dependencies are not configured")
	}
	if fileID <= 0 || userID <= 0 || claimed.IsZero() {
		return ErrValidation
	}

	var objectKey string
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.UploadedFile, error) {
			rec, err := s.store.FindForUser(c, tx, fileID, userID)
			if errors.Is(err, pgrepo.ErrFileNotFound) {
				return model.UploadedFile{}, versioning.ErrNotFound
			}
			return rec, err
		})
		if err != nil {
			return err
		}

		ok, err := s.store.Delete(txCtx, tx, fileID, userID, claimed)
		if err != nil {
			return err
		}
		if !ok {
			return versioning.ErrStaleWrite
		}
		objectKey = rec.ObjectKey
		return nil
	})
	if err != nil {
		return err
	}

	return s.storage.Delete(ctx, objectKey)
}

func buildObjectKey(userID int64, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}

	stamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("users/%d/files/%s_%s%s", userID, stamp, uuid.NewString(), ext)
}
