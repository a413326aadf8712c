package dto

import (
	"time"

	"github.com/oktntko/book-share/internal/domain/model"
)

type RecordRequest struct {
	ISBN       string     `json:"isbn"`
	Status     string     `json:"status"`
	Page       int        `json:"page"`
	FinishedOn *time.Time `json:"finished_on,omitempty"`
	Note       string     `json:"note"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
}

type DeleteRecordRequest struct {
	UpdatedAt time.Time `json:"updated_at"`
}

type RecordListResponse struct {
	Records []model.ReadingRecord `json:"records"`
}
