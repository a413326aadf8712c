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

var ErrSessionNotFound = errors.New("session not found")

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, payload, expires_at, created_at, updated_at`

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Payload,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func (r *SessionRepo) Find(ctx context.Context, id string) (model.Session, error) {
	if r.pool == nil {
		return model.Session{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return model.Session{}, ErrSessionNotFound
	}

	sess, err := scanSession(r.pool.QueryRow(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, ErrSessionNotFound
		}
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}

	return sess, nil
}

// Upsert is a single conditional write. Two concurrent writers for the same
// key never race into a duplicate-key error; the row ends up with whichever
// write the database applied last.
func (r *SessionRepo) Upsert(ctx context.Context, sess model.Session) (model.Session, error) {
	if r.pool == nil {
		return model.Session{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(sess.ID) == "" {
		return model.Session{}, fmt.Errorf("session id is required")
	}

	stored, err := scanSession(r.pool.QueryRow(ctx, `
INSERT INTO sessions (id, user_id, payload, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, clock_timestamp(), clock_timestamp())
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	payload = EXCLUDED.payload,
	expires_at = EXCLUDED.expires_at,
	updated_at = clock_timestamp()
RETURNING `+sessionColumns+`
`, sess.ID, sess.UserID, sess.Payload, sess.ExpiresAt.UTC()))
	if err != nil {
		return model.Session{}, fmt.Errorf("upsert session: %w", err)
	}

	return stored, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM sessions
WHERE id = $1
`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	res, err := r.pool.Exec(ctx, `
DELETE FROM sessions
WHERE expires_at <= $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return res.RowsAffected(), nil
}
