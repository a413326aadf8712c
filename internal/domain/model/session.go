package model

import "time"

// Session is one row of the sessions table. UserID is nil for anonymous
// sessions. Payload is opaque to the store; callers own its encoding.
type Session struct {
	ID        string    `json:"id"`
	UserID    *int64    `json:"user_id"`
	Payload   []byte    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
