package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oktntko/book-share/internal/domain/model"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepo struct {
	pool *pgxpool.Pool
}

func NewFileRepo(pool *pgxpool.Pool) *FileRepo {
	return &FileRepo{pool: pool}
}

const fileColumns = `id, user_id, object_key, file_name, content_type, size_bytes, created_at, updated_at`

func scanFile(row pgx.Row) (model.UploadedFile, error) {
	var f model.UploadedFile
	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.ObjectKey,
		&f.FileName,
		&f.ContentType,
		&f.SizeBytes,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

func (r *FileRepo) Create(ctx context.Context, tx pgx.Tx, userID int64, objectKey, fileName, contentType string, sizeBytes int64) (model.UploadedFile, error) {
	if tx == nil {
		return model.UploadedFile{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || strings.TrimSpace(objectKey) == "" || sizeBytes <= 0 {
		return model.UploadedFile{}, fmt.Errorf("invalid file payload")
	}

	file, err := scanFile(tx.QueryRow(ctx, `
INSERT INTO files (user_id, object_key, file_name, content_type, size_bytes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, clock_timestamp(), clock_timestamp())
RETURNING `+fileColumns+`
`, userID, objectKey, fileName, contentType, sizeBytes))
	if err != nil {
		return model.UploadedFile{}, fmt.Errorf("create file: %w", err)
	}

	return file, nil
}

func (r *FileRepo) FindForUser(ctx context.Context, tx pgx.Tx, fileID, userID int64) (model.UploadedFile, error) {
	if tx == nil {
		return model.UploadedFile{}, fmt.Errorf("transaction is required")
	}
	if fileID <= 0 || userID <= 0 {
		return model.UploadedFile{}, fmt.Errorf("invalid file lookup")
	}

	file, err := scanFile(tx.QueryRow(ctx, `
SELECT `+fileColumns+`
FROM files
WHERE id = $1 AND user_id = $2
`, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UploadedFile{}, ErrFileNotFound
		}
		return model.UploadedFile{}, fmt.Errorf("find file for user: %w", err)
	}

	return file, nil
}

func (r *FileRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]model.UploadedFile, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+fileColumns+`
FROM files
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := make([]model.UploadedFile, 0, limit)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}

	return files, nil
}

func (r *FileRepo) Delete(ctx context.Context, tx pgx.Tx, fileID, userID int64, claimed time.Time) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if fileID <= 0 || userID <= 0 {
		return false, fmt.Errorf("invalid file lookup")
	}

	res, err := tx.Exec(ctx, `
DELETE FROM files
WHERE id = $1 AND user_id = $2 AND updated_at = $3
`, fileID, userID, claimed)
	if err != nil {
		return false, fmt.Errorf("delete file: %w", err)
	}

	return res.RowsAffected() > 0, nil
}
