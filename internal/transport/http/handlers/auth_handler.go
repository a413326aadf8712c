package handlers

import (
	"errors"
	"net/http"
	"time"

	authsvc "github.com/oktntko/book-share/internal/services/auth"
	sessionsvc "github.com/oktntko/book-share/internal/services/session"
	usersvc "github.com/oktntko/book-share/internal/services/users"
	"github.com/oktntko/book-share/internal/transport/http/dto"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

type AuthHandler struct {
	auth  *authsvc.Service
	users *usersvc.Service
}

func NewAuthHandler(auth *authsvc.Service, users *usersvc.Service) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if h.users == nil {
		writeInternal(w, "USER_SERVICE_UNAVAILABLE", "user service is unavailable")
		return
	}

	var req dto.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.users.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, usersvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "email or password rejected")
		case isVersioningError(err):
			writeVersioningError(w, err)
		default:
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.SessionUserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	})
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	sess, user, err := h.auth.SignIn(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrTwoFactorRequired):
			writeUnauthorized(w, "TOTP_REQUIRED", "two factor code required")
		case errors.Is(err, authsvc.ErrTwoFactorInvalid):
			writeUnauthorized(w, "TOTP_INVALID", "two factor code rejected")
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			writeUnauthorized(w, "INVALID_CREDENTIALS", "email or password is wrong")
		default:
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	setSessionCookie(w, sess.ID, sess.ExpiresAt)
	httperrors.Write(w, http.StatusOK, dto.SignInResponse{
		User: dto.SessionUserResponse{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	sid := ""
	if identity, ok := authsvc.IdentityFromContext(r.Context()); ok {
		sid = identity.SID
	}

	if err := h.auth.SignOut(r.Context(), sid); err != nil {
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	clearSessionCookie(w)
	httperrors.Write(w, http.StatusOK, dto.SignOutResponse{OK: true})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}

	sess, err := h.auth.Refresh(r.Context(), identity.SID)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			clearSessionCookie(w)
			writeUnauthorized(w, "UNAUTHORIZED", "session expired")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
		return
	}

	setSessionCookie(w, sess.ID, sess.ExpiresAt)
	httperrors.Write(w, http.StatusOK, dto.SignInResponse{
		User: dto.SessionUserResponse{
			ID:          identity.UserID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		},
		ExpiresAt: sess.ExpiresAt,
	})
}

func setSessionCookie(w http.ResponseWriter, sid string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionsvc.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionsvc.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
