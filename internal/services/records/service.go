package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oktntko/book-share/internal/domain/enums"
	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/services/versioning"
)

var ErrValidation = errors.New("validation error")

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, userID int64, f pgrepo.RecordFields) (model.ReadingRecord, error)
	FindForUser(ctx context.Context, tx pgx.Tx, recordID, userID int64) (model.ReadingRecord, error)
	ListForUser(ctx context.Context, userID int64, status enums.ReadingStatus, limit int) ([]model.ReadingRecord, error)
	Update(ctx context.Context, tx pgx.Tx, recordID, userID int64, claimed time.Time, f pgrepo.RecordFields) (model.ReadingRecord, error)
	Delete(ctx context.Context, tx pgx.Tx, recordID, userID int64, claimed time.Time) (bool, error)
}

// Service keeps each user's private reading log. Records never cross user
// boundaries; every operation is scoped to the owner.
type Service struct {
	store Store
	runTx func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now   func() time.Time
}

func NewService(pool *pgxpool.Pool, store Store) *Service {
	svc := &Service{
		store: store,
		now:   time.Now,
	}
	if pool != nil {
		svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}
	return svc
}

func (s *Service) Create(ctx context.Context, userID int64, f pgrepo.RecordFields) (model.ReadingRecord, error) {
	if s.runTx == nil || s.store == nil {
		return model.ReadingRecord{}, fmt.Errorf("record dependencies are not configured")
	}
	if err := validateFields(&f, s.now()); err != nil {
		return model.ReadingRecord{}, err
	}
	if userID <= 0 {
		return model.ReadingRecord{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}

	var created model.ReadingRecord
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := s.store.Create(txCtx, tx, userID, f)
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return model.ReadingRecord{}, err
	}

	return created, nil
}

func (s *Service) List(ctx context.Context, userID int64, status enums.ReadingStatus, limit int) ([]model.ReadingRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("record store is nil")
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("invalid status filter: %w", ErrValidation)
	}
	return s.store.ListForUser(ctx, userID, status, limit)
}

func (s *Service) Update(ctx context.Context, recordID, userID int64, claimed time.Time, f pgrepo.RecordFields) (model.ReadingRecord, error) {
	if s.runTx == nil || s.store == nil {
		return model.ReadingRecord{}, fmt.Errorf("record dependencies are not configured")
	}
	if err := validateFields(&f, s.now()); err != nil {
		return model.ReadingRecord{}, err
	}
	if recordID <= 0 || userID <= 0 || claimed.IsZero() {
		return model.ReadingRecord{}, fmt.Errorf("invalid record payload: %w", ErrValidation)
	}

	var updated model.ReadingRecord
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.ReadingRecord, error) {
			rec, err := s.store.FindForUser(c, tx, recordID, userID)
			if errors.Is(err, pgrepo.ErrRecordNotFound) {
				return model.ReadingRecord{}, versioning.ErrNotFound
			}
			return rec, err
		}); err != nil {
			return err
		}

		rec, err := s.store.Update(txCtx, tx, recordID, userID, claimed, f)
		if err != nil {
			if errors.Is(err, pgrepo.ErrRecordNotFound) {
				return versioning.ErrStaleWrite
			}
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return model.ReadingRecord{}, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, recordID, userID int64, claimed time.Time) error {
	if s.runTx == nil || s.store == nil {
		return fmt.Errorf("record dependencies are not configured")
	}
	if recordID <= 0 || userID <= 0 || claimed.IsZero() {
		return fmt.Errorf("invalid record lookup: %w", ErrValidation)
	}

	return s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.ReadingRecord, error) {
			rec, err := s.store.FindForUser(c, tx, recordID, userID)
			if errors.Is(err, pgrepo.ErrRecordNotFound) {
				return model.ReadingRecord{}, versioning.ErrNotFound
			}
			return rec, err
		}); err != nil {
			return err
		}

		ok, err := s.store.Delete(txCtx, tx, recordID, userID, claimed)
		if err != nil {
			return err
		}
		if !ok {
			return versioning.ErrStaleWrite
		}
		return nil
	})
}

// validateFields normalizes a write payload. A record marked finished gets a
// finish date stamped today when the caller left it empty.
func validateFields(f *pgrepo.RecordFields, now time.Time) error {
	f.ISBN = strings.TrimSpace(f.ISBN)
	if f.ISBN == "" {
		return fmt.Errorf("isbn is required: %w", ErrValidation)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("invalid status %q: %w", f.Status, ErrValidation)
	}
	if f.Page < 0 {
		return fmt.Errorf("negative page: %w", ErrValidation)
	}
	if f.Status == enums.ReadingStatusFinished && f.FinishedOn == nil {
		today := now.Truncate(24 * time.Hour)
		f.FinishedOn = &today
	}
	if f.Status != enums.ReadingStatusFinished {
		f.FinishedOn = nil
	}
	return nil
}
