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

var ErrPostNotFound = errors.New("post not found")

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// PostFields is the typed write shape for a post. Filters and writes never
// pass free-form maps into queries.
type PostFields struct {
	ISBN      string
	Kind      enums.PostKind
	Title     string
	Body      string
	Tags      []string
	Published bool
}

// PostFilter narrows List. Zero values mean "no constraint".
type PostFilter struct {
	UserID        int64
	ISBN          string
	Kind          enums.PostKind
	PublishedOnly bool
	Limit         int
	Offset        int
}

const postColumns = `id, user_id, isbn, kind, title, body, tags, published, created_at, updated_at`

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.ISBN,
		&p.Kind,
		&p.Title,
		&p.Body,
		&p.Tags,
		&p.Published,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *PostRepo) Create(ctx context.Context, tx pgx.Tx, userID int64, f PostFields) (model.Post, error) {
	if tx == nil {
		return model.Post{}, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || strings.TrimSpace(f.ISBN) == "" || !f.Kind.Valid() {
		return model.Post{}, fmt.Errorf("invalid post payload")
	}

	post, err := scanPost(tx.QueryRow(ctx, `
INSERT INTO posts (user_id, isbn, kind, title, body, tags, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, clock_timestamp(), clock_timestamp())
RETURNING `+postColumns+`
`, userID, strings.TrimSpace(f.ISBN), f.Kind, f.Title, f.Body, f.Tags, f.Published))
	if err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}

	return post, nil
}

func (r *PostRepo) FindByID(ctx context.Context, id int64) (model.Post, error) {
	if r.pool == nil {
		return model.Post{}, fmt.Errorf("postgres pool is nil")
	}
	if id <= 0 {
		return model.Post{}, fmt.Errorf("invalid post id")
	}

	post, err := scanPost(r.pool.QueryRow(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, ErrPostNotFound
		}
		return model.Post{}, fmt.Errorf("find post by id: %w", err)
	}

	return post, nil
}

// FindForUser is the owner-narrowed lookup the version check runs on. A post
// owned by someone else is reported exactly like a missing one.
func (r *PostRepo) FindForUser(ctx context.Context, tx pgx.Tx, postID, userID int64) (model.Post, error) {
	if tx == nil {
		return model.Post{}, fmt.Errorf("transaction is required")
	}
	if postID <= 0 || userID <= 0 {
		return model.Post{}, fmt.Errorf("invalid post lookup")
	}

	post, err := scanPost(tx.QueryRow(ctx, `
SELECT `+postColumns+`
FROM posts
WHERE id = $1 AND user_id = $2
`, postID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, ErrPostNotFound
		}
		return model.Post{}, fmt.Errorf("find post for user: %w", err)
	}

	return post, nil
}

func (r *PostRepo) List(ctx context.Context, f PostFilter) ([]model.Post, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if f.UserID > 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if strings.TrimSpace(f.ISBN) != "" {
		args = append(args, strings.TrimSpace(f.ISBN))
		where = append(where, fmt.Sprintf("isbn = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, f.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.PublishedOnly {
		where = append(where, "published = TRUE")
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepo) Update(ctx context.Context, tx pgx.Tx, postID, userID int64, claimed time.Time, f PostFields) (model.Post, error) {
	if tx == nil {
		return model.Post{}, fmt.Errorf("transaction is required")
	}
	if postID <= 0 || userID <= 0 || !f.Kind.Valid() {
		return model.Post{}, fmt.Errorf("invalid post payload")
	}

	post, err := scanPost(tx.QueryRow(ctx, `
UPDATE posts
SET isbn = $4, kind = $5, title = $6, body = $7, tags = $8, published = $9, updated_at = clock_timestamp()
WHERE id = $1 AND user_id = $2 AND updated_at = $3
RETURNING `+postColumns+`
`, postID, userID, claimed, strings.TrimSpace(f.ISBN), f.Kind, f.Title, f.Body, f.Tags, f.Published))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, ErrPostNotFound
		}
		return model.Post{}, fmt.Errorf("update post: %w", err)
	}

	return post, nil
}

func (r *PostRepo) Delete(ctx context.Context, tx pgx.Tx, postID, userID int64, claimed time.Time) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if postID <= 0 || userID <= 0 {
		return false, fmt.Errorf("invalid post lookup")
	}

	res, err := tx.Exec(ctx, `
DELETE FROM posts
WHERE id = $1 AND user_id = $2 AND updated_at = $3
`, postID, userID, claimed)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}

	return res.RowsAffected() > 0, nil
}
