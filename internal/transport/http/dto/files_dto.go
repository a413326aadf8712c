package dto

import (
	"time"

	"github.com/oktntko/book-share/internal/services/files"
)

type FileResponse struct {
	ID          int64     `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
}

type DeleteFileRequest struct {
	UpdatedAt time.Time `json:"updated_at"`
}

func NewFileResponse(f files.File) FileResponse {
	return FileResponse{
		ID:          f.ID,
		FileName:    f.FileName,
		ContentType: f.ContentType,
		SizeBytes:   f.SizeBytes,
		URL:         f.URL,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
