package handlers

import (
	"errors"
	"net/http"

	"github.com/oktntko/book-share/internal/domain/model"
	authsvc "github.com/oktntko/book-share/internal/services/auth"
	usersvc "github.com/oktntko/book-share/internal/services/users"
	"github.com/oktntko/book-share/internal/transport/http/dto"
	httperrors "github.com/oktntko/book-share/internal/transport/http/errors"
)

type UsersHandler struct {
	users *usersvc.Service
}

func NewUsersHandler(users *usersvc.Service) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		writeVersioningError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(user))
}

func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), identity.UserID, req.UpdatedAt, usersvc.ProfileInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(user))
}

func (h *UsersHandler) DeactivateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.DeactivateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.users.Deactivate(r.Context(), identity.UserID, req.UpdatedAt, identity.SID); err != nil {
		writeUserError(w, err)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) TwoFactorEnroll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	secret, qr, err := h.users.TwoFactorEnroll(r.Context(), identity.UserID, identity.SID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TwoFactorEnrollResponse{
		Secret:    secret,
		QRDataURL: qr,
	})
}

func (h *UsersHandler) TwoFactorConfirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.TwoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.users.TwoFactorConfirm(r.Context(), identity.UserID, identity.SID, req.Code)
	if err != nil {
		writeUserError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(user))
}

func (h *UsersHandler) TwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.TwoFactorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	user, err := h.users.TwoFactorDisable(r.Context(), identity.UserID, req.Code)
	if err != nil {
		writeUserError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(user))
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (authsvc.Identity, bool) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return authsvc.Identity{}, false
	}
	return identity, true
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usersvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, usersvc.ErrTwoFactorCode):
		writeBadRequest(w, "TOTP_INVALID", "two factor code rejected")
	case errors.Is(err, usersvc.ErrNoEnrollment):
		writeBadRequest(w, "NO_ENROLLMENT", "no two factor enrollment in progress")
	case isVersioningError(err):
		writeVersioningError(w, err)
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func profileResponse(user model.User) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		TOTPEnabled: user.TOTPEnabled,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
