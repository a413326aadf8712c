package dto

import "time"

type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type SessionUserResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type SignInResponse struct {
	User      SessionUserResponse `json:"user"`
	ExpiresAt time.Time           `json:"expires_at"`
}

type SignOutResponse struct {
	OK bool `json:"ok"`
}
