package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oktntko/book-share/internal/domain/model"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

const uniqueViolationCode = "23505"

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, display_name, bio, totp_secret, totp_enabled, deactivated_at, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Bio,
		&u.TOTPSecret,
		&u.TOTPEnabled,
		&u.DeactivatedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, email, passwordHash, displayName string) (model.User, error) {
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(email) == "" || passwordHash == "" {
		return model.User{}, fmt.Errorf("invalid user payload")
	}

	user, err := scanUser(tx.QueryRow(ctx, `
INSERT INTO users (email, password_hash, display_name, bio, totp_secret, totp_enabled, created_at, updated_at)
VALUES ($1, $2, $3, '', '', FALSE, clock_timestamp(), clock_timestamp())
RETURNING `+userColumns+`
`, strings.ToLower(strings.TrimSpace(email)), passwordHash, strings.TrimSpace(displayName)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindActiveByID(ctx context.Context, id int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1 AND deactivated_at IS NULL
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindActiveByIDTx(ctx context.Context, tx pgx.Tx, id int64) (model.User, error) {
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}
	if id <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	user, err := scanUser(tx.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1 AND deactivated_at IS NULL
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, bool, error) {
	if r.pool == nil {
		return model.User{}, false, fmt.Errorf("postgres pool is nil")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE email = $1 AND deactivated_at IS NULL
`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, false, nil
		}
		return model.User{}, false, fmt.Errorf("find user by email: %w", err)
	}

	return user, true, nil
}

func (r *UserRepo) FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (model.User, bool, error) {
	if tx == nil {
		return model.User{}, false, fmt.Errorf("transaction is required")
	}

	user, err := scanUser(tx.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE email = $1 AND deactivated_at IS NULL
`, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, false, nil
		}
		return model.User{}, false, fmt.Errorf("find user by email: %w", err)
	}

	return user, true, nil
}

// UpdateProfile re-asserts updated_at in the predicate so a write that lost
// the race matches zero rows even if the version check passed moments before.
func (r *UserRepo) UpdateProfile(ctx context.Context, tx pgx.Tx, userID int64, claimed time.Time, email, displayName, bio string) (model.User, error) {
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	user, err := scanUser(tx.QueryRow(ctx, `
UPDATE users
SET email = $3, display_name = $4, bio = $5, updated_at = clock_timestamp()
WHERE id = $1 AND deactivated_at IS NULL AND updated_at = $2
RETURNING `+userColumns+`
`, userID, claimed, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(displayName), bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("update user profile: %w", err)
	}

	return user, nil
}

func (r *UserRepo) SetTwoFactor(ctx context.Context, tx pgx.Tx, userID int64, encryptedSecret string, enabled bool) (model.User, error) {
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return model.User{}, fmt.Errorf("invalid user id")
	}

	user, err := scanUser(tx.QueryRow(ctx, `
UPDATE users
SET totp_secret = $2, totp_enabled = $3, updated_at = clock_timestamp()
WHERE id = $1 AND deactivated_at IS NULL
RETURNING `+userColumns+`
`, userID, encryptedSecret, enabled))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("set user two factor: %w", err)
	}

	return user, nil
}

func (r *UserRepo) Deactivate(ctx context.Context, tx pgx.Tx, userID int64, claimed time.Time) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}

	res, err := tx.Exec(ctx, `
UPDATE users
SET deactivated_at = clock_timestamp(), updated_at = clock_timestamp()
WHERE id = $1 AND deactivated_at IS NULL AND updated_at = $2
`, userID, claimed)
	if err != nil {
		return false, fmt.Errorf("deactivate user: %w", err)
	}

	return res.RowsAffected() > 0, nil
}
