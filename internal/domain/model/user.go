package model

import "time"

type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	DisplayName   string     `json:"display_name"`
	Bio           string     `json:"bio"`
	TOTPSecret    string     `json:"-"`
	TOTPEnabled   bool       `json:"totp_enabled"`
	DeactivatedAt *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (u User) EntityID() int64 {
	return u.ID
}

func (u User) LastUpdated() time.Time {
	return u.UpdatedAt
}
