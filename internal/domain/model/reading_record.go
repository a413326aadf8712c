package model

import (
	"time"

	"github.com/oktntko/book-share/internal/domain/enums"
)

type ReadingRecord struct {
	ID         int64               `json:"id"`
	UserID     int64               `json:"user_id"`
	ISBN       string              `json:"isbn"`
	Status     enums.ReadingStatus `json:"status"`
	Page       int                 `json:"page"`
	FinishedOn *time.Time          `json:"finished_on"`
	Note       string              `json:"note"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (r ReadingRecord) EntityID() int64 {
	return r.ID
}

func (r ReadingRecord) LastUpdated() time.Time {
	return r.UpdatedAt
}
