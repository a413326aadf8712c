package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/oktntko/book-share/internal/domain/enums"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	recordsvc "github.com/oktntko/book-share/internal/services/records"
	"github.com/oktntko/book-share/internal/transport/http/dto"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

type RecordsHandler struct {
	records *recordsvc.Service
}

func NewRecordsHandler(records *recordsvc.Service) *RecordsHandler {
	return &RecordsHandler{records: records}
}

func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.RecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.records.Create(r.Context(), identity.UserID, recordFields(req))
	if err != nil {
		writeRecordError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, rec)
}

func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	limit := 0
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = parsed
	}

	records, err := h.records.List(r.Context(), identity.UserID, enums.ReadingStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		writeRecordError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RecordListResponse{Records: records})
}

func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recordID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.RecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.records.Update(r.Context(), recordID, identity.UserID, req.UpdatedAt, recordFields(req))
	if err != nil {
		writeRecordError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, rec)
}

func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recordID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.DeleteRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.records.Delete(r.Context(), recordID, identity.UserID, req.UpdatedAt); err != nil {
		writeRecordError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func recordFields(req dto.RecordRequest) pgrepo.RecordFields {
	return pgrepo.RecordFields{
		ISBN:       req.ISBN,
		Status:     enums.ReadingStatus(req.Status),
		Page:       req.Page,
		FinishedOn: req.FinishedOn,
		Note:       req.Note,
	}
}

func writeRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recordsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case isVersioningError(err):
		writeVersioningError(w, err)
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
