package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oktntko/book-share/internal/services/versioning"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeVersioningError maps the mutation outcomes every versioned write
// shares. Stale stamps and duplicates are both conflicts, with distinct codes
// so clients can react differently.
func writeVersioningError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, versioning.ErrNotFound):
		httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
			Code:    "NOT_FOUND",
			Message: "resource does not exist",
		})
	case errors.Is(err, versioning.ErrStaleWrite):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "STALE_WRITE",
			Message: "resource was modified by someone else, reload and retry",
		})
	case errors.Is(err, versioning.ErrDuplicate):
		httperrors.Write(w, http.StatusConflict, httperrors.APIError{
			Code:    "DUPLICATE",
			Message: "a conflicting resource already exists",
		})
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func isVersioningError(err error) bool {
	return errors.Is(err, versioning.ErrNotFound) ||
		errors.Is(err, versioning.ErrStaleWrite) ||
		errors.Is(err, versioning.ErrDuplicate)
}
