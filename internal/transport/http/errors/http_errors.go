package errors

import (
	"encoding/json"
	"net/http"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConflictError carries the row's current stamp so clients can re-read and
// retry a stale write without an extra round trip.
type ConflictError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	CurrentAt string `json:"current_updated_at,omitempty"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
