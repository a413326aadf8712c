package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oktntko/book-share/internal/domain/enums"
	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/services/versioning"
)

type fakeStore struct {
	rows   map[int64]model.ReadingRecord
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]model.ReadingRecord{}, nextID: 1}
}

func (f *fakeStore) Create(_ context.Context, _ pgx.Tx, userID int64, fields pgrepo.RecordFields) (model.ReadingRecord, error) {
	rec := model.ReadingRecord{
		ID:         f.nextID,
		UserID:     userID,
		ISBN:       fields.ISBN,
		Status:     fields.Status,
		Page:       fields.Page,
		FinishedOn: fields.FinishedOn,
		Note:       fields.Note,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.nextID++
	f.rows[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) FindForUser(_ context.Context, _ pgx.Tx, recordID, userID int64) (model.ReadingRecord, error) {
	rec, ok := f.rows[recordID]
	if !ok || rec.UserID != userID {
		return model.ReadingRecord{}, pgrepo.ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID int64, status enums.ReadingStatus, _ int) ([]model.ReadingRecord, error) {
	var out []model.ReadingRecord
	for _, rec := range f.rows {
		if rec.UserID != userID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, _ pgx.Tx, recordID, userID int64, claimed time.Time, fields pgrepo.RecordFields) (model.ReadingRecord, error) {
	rec, ok := f.rows[recordID]
	if !ok || rec.UserID != userID || !rec.UpdatedAt.Equal(claimed) {
		return model.ReadingRecord{}, pgrepo.ErrRecordNotFound
	}
	rec.ISBN = fields.ISBN
	rec.Status = fields.Status
	rec.Page = fields.Page
	rec.FinishedOn = fields.FinishedOn
	rec.Note = fields.Note
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Millisecond)
	f.rows[recordID] = rec
	return rec, nil
}

func (f *fakeStore) Delete(_ context.Context, _ pgx.Tx, recordID, userID int64, claimed time.Time) (bool, error) {
	rec, ok := f.rows[recordID]
	if !ok || rec.UserID != userID || !rec.UpdatedAt.Equal(claimed) {
		return false, nil
	}
	delete(f.rows, recordID)
	return true, nil
}

func newTestService(store *fakeStore) *Service {
	svc := NewService(nil, store)
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestCreateStampsFinishDateForFinishedRecords(t *testing.T) {
	svc := newTestService(newFakeStore())
	svc.now = func() time.Time { return time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC) }

	rec, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:   "9784101010014",
		Status: enums.ReadingStatusFinished,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.FinishedOn == nil || !rec.FinishedOn.Equal(time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("finished record must get today's date: %v", rec.FinishedOn)
	}
}

func TestCreateClearsFinishDateForUnfinishedRecords(t *testing.T) {
	svc := newTestService(newFakeStore())

	stale := time.Now()
	rec, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:       "9784101010014",
		Status:     enums.ReadingStatusReading,
		FinishedOn: &stale,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.FinishedOn != nil {
		t.Fatalf("unfinished record must not carry a finish date")
	}
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:   "9784101010014",
		Status: "devoured",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateRejectsStaleStamp(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	rec, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:   "9784101010014",
		Status: enums.ReadingStatusReading,
		Page:   10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(context.Background(), rec.ID, 1, rec.UpdatedAt.Add(-time.Second), pgrepo.RecordFields{
		ISBN:   rec.ISBN,
		Status: enums.ReadingStatusReading,
		Page:   50,
	})
	if !errors.Is(err, versioning.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}
	if store.rows[rec.ID].Page != 10 {
		t.Fatalf("stale write must not land")
	}
}

func TestUpdateTreatsForeignRecordAsMissing(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	rec, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:   "9784101010014",
		Status: enums.ReadingStatusReading,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(context.Background(), rec.ID, 2, rec.UpdatedAt, pgrepo.RecordFields{
		ISBN:   rec.ISBN,
		Status: enums.ReadingStatusReading,
	})
	if !errors.Is(err, versioning.ErrNotFound) {
		t.Fatalf("foreign record must look missing, got %v", err)
	}
}

func TestDeleteWithMatchingStamp(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	rec, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
		ISBN:   "9784101010014",
		Status: enums.ReadingStatusPlanned,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), rec.ID, 1, rec.UpdatedAt); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("row must be gone")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	for _, status := range []enums.ReadingStatus{enums.ReadingStatusPlanned, enums.ReadingStatusReading} {
		if _, err := svc.Create(context.Background(), 1, pgrepo.RecordFields{
			ISBN:   "9784101010014",
			Status: status,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	out, err := svc.List(context.Background(), 1, enums.ReadingStatusReading, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Status != enums.ReadingStatusReading {
		t.Fatalf("unexpected records: %+v", out)
	}
}
