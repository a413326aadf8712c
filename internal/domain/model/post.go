package model

import (
	"time"

	"github.com/oktntko/book-share/internal/domain/enums"
)

type Post struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	ISBN      string         `json:"isbn"`
	Kind      enums.PostKind `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Tags      []string       `json:"tags"`
	Published bool           `json:"published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (p Post) EntityID() int64 {
	return p.ID
}

func (p Post) LastUpdated() time.Time {
	return p.UpdatedAt
}
