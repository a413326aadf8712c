package handlers

import (
	"errors"
	"net/http"
	"strconv"

	filesvc "github.com/oktntko/book-share/internal/services/files"
	"github.com/oktntko/book-share/internal/transport/http/dto"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

const maxUploadMemory = 32 << 20

type FilesHandler struct {
	files *filesvc.Service
}

func NewFilesHandler(files *filesvc.Service) *FilesHandler {
	return &FilesHandler{files: files}
}

func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "multipart form is required")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file field is required")
		return
	}
	defer part.Close()

	file, err := h.files.Upload(
		r.Context(),
		identity.UserID,
		header.Filename,
		header.Header.Get("Content-Type"),
		part,
		header.Size,
	)
	if err != nil {
		writeFileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.NewFileResponse(file))
}

func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	limit := 0
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = parsed
	}

	files, err := h.files.List(r.Context(), identity.UserID, limit)
	if err != nil {
		writeFileError(w, err)
		return
	}

	out := dto.FileListResponse{Files: make([]dto.FileResponse, 0, len(files))}
	for _, file := range files {
		out.Files = append(out.Files, dto.NewFileResponse(file))
	}

	httperrors.Write(w, http.StatusOK, out)
}

func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	fileID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.DeleteFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.files.Delete(r.Context(), fileID, identity.UserID, req.UpdatedAt); err != nil {
		writeFileError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeFileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, filesvc.ErrFileTooBig):
		writeBadRequest(w, "FILE_TOO_BIG", "file exceeds size limit")
	case errors.Is(err, filesvc.ErrContentType):
		writeBadRequest(w, "UNSUPPORTED_CONTENT_TYPE", "unsupported content type")
	case isVersioningError(err):
		writeVersioningError(w, err)
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
