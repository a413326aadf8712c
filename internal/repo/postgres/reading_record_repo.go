package postgres

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
)

var ErrRecordNotFound = errors.New("reading record not found")

type ReadingRecordRepo struct {
	pool *pgxpool.Pool
}

func NewReadingRecordRepo(pool *pgxpool.Pool) *ReadingRecordRepo {
	return &ReadingRecordRepo{pool: pool}
}

type RecordFields struct {
	ISBN       string
	Status     enums.ReadingStatus
	Page       int
	FinishedOn *time.Time
	Note       string
}

const recordColumns = `id, user_id, isbn, status, page, finished_on, note, created_at, updated_at`

func scanRecord(row pgx.Row) (model.ReadingRecord, error) {
	var rec model.ReadingRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ISBN,
		&rec.Status,
		&rec.Page,
		&rec.FinishedOn,
		&rec.Note,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func (r *ReadingRecordRepo) Create(ctx context.Context, tx pgx.Tx, userID int64, f RecordFields) (model.ReadingRecord, error) {
	if tx == nil {
		return model.ReadingRecord{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || strings.TrimSpace(f.ISBN) == "" || !f.Status.Valid() {
		return model.ReadingRecord{}, fmt.Errorf("invalid reading record payload")
	}

	rec, err := scanRecord(tx.QueryRow(ctx, `
INSERT INTO reading_records (user_id, isbn, status, page, finished_on, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp(), clock_timestamp())
RETURNING `+recordColumns+`
`, userID, strings.TrimSpace(f.ISBN), f.Status, f.Page, f.FinishedOn, f.Note))
	if err != nil {
		return model.ReadingRecord{}, fmt.Errorf("create reading record: %w", err)
	}

	return rec, nil
}

func (r *ReadingRecordRepo) FindForUser(ctx context.Context, tx pgx.Tx, recordID, userID int64) (model.ReadingRecord, error) {
	if tx == nil {
		return model.ReadingRecord{}, fmt.Errorf("transaction is required")
	}
	if recordID <= 0 || userID <= 0 {
		return model.ReadingRecord{}, fmt.Errorf("invalid reading record lookup")
	}

	rec, err := scanRecord(tx.QueryRow(ctx, `
SELECT `+recordColumns+`
FROM reading_records
WHERE id = $1 AND user_id = $2
`, recordID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReadingRecord{}, ErrRecordNotFound
		}
		return model.ReadingRecord{}, fmt.Errorf("find reading record: %w", err)
	}

	return rec, nil
}

func (r *ReadingRecordRepo) ListForUser(ctx context.Context, userID int64, status enums.ReadingStatus, limit int) ([]model.ReadingRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + recordColumns + ` FROM reading_records WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reading records: %w", err)
	}
	defer rows.Close()

	records := make([]model.ReadingRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading record rows: %w", err)
	}

	return records, nil
}

func (r *ReadingRecordRepo) Update(ctx context.Context, tx pgx.Tx, recordID, userID int64, claimed time.Time, f RecordFields) (model.ReadingRecord, error) {
	if tx == nil {
		return model.ReadingRecord{}, fmt.Errorf("transaction is required")
	}
	if recordID <= 0 || userID <= 0 || !f.Status.Valid() {
		return model.ReadingRecord{}, fmt.Errorf("invalid reading record payload")
	}

	rec, err := scanRecord(tx.QueryRow(ctx, `
UPDATE reading_records
SET isbn = $4, status = $5, page = $6, finished_on = $7, note = $8, updated_at = clock_timestamp()
WHERE id = $1 AND user_id = $2 AND updated_at = $3
RETURNING `+recordColumns+`
`, recordID, userID, claimed, strings.TrimSpace(f.ISBN), f.Status, f.Page, f.FinishedOn, f.Note))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReadingRecord{}, ErrRecordNotFound
		}
		return model.ReadingRecord{}, fmt.Errorf("update reading record: %w", err)
	}

	return rec, nil
}

func (r *ReadingRecordRepo) Delete(ctx context.Context, tx pgx.Tx, recordID, userID int64, claimed time.Time) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if recordID <= 0 || userID <= 0 {
		return false, fmt.Errorf("invalid reading record lookup")
	}

	res, err := tx.Exec(ctx, `
DELETE FROM reading_records
WHERE id = $1 AND user_id = $2 AND updated_at = $3
`, recordID, userID, claimed)
	if err != nil {
		return false, fmt.Errorf("delete reading record: %w", err)
	}

	return res.RowsAffected() > 0, nil
}
