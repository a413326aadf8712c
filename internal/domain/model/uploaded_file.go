package model

import "time"

type UploadedFile struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ObjectKey   string    `json:"-"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (f UploadedFile) EntityID() int64 {
	return f.ID
}

func (f UploadedFile) LastUpdated() time.Time {
	return f.UpdatedAt
}
