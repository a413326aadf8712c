package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/security"
	"github.com/oktntko/book-share/internal/services/versioning"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrTwoFactorCode = errors.New("two factor code rejected")
	ErrNoEnrollment  = errors.New("no two factor enrollment in progress")
)

const minPasswordLength = 8

type Store interface {
	Create(ctx context.Context, tx pgx.Tx, email, passwordHash, displayName string) (model.User, error)
	FindActiveByID(ctx context.Context, id int64) (model.User, error)
	FindActiveByIDTx(ctx context.Context, tx pgx.Tx, id int64) (model.User, error)
	FindByEmailTx(ctx context.Context, tx pgx.Tx, email string) (model.User, bool, error)
	UpdateProfile(ctx context.Context, tx pgx.Tx, userID int64, claimed time.Time, email, displayName, bio string) (model.User, error)
	SetTwoFactor(ctx context.Context, tx pgx.Tx, userID int64, encryptedSecret string, enabled bool) (model.User, error)
	Deactivate(ctx context.Context, tx pgx.Tx, userID int64, claimed time.Time) (bool, error)
}

type SessionStore interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Set(ctx context.Context, sess model.Session) (model.Session, error)
	Destroy(ctx context.Context, id string) error
}

type Service struct {
	store    Store
	sessions SessionStore
	cipher   *security.SecretCipher
	issuer   string
	runTx    func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	now      func() time.Time
}

type Dependencies struct {
	Pool     *pgxpool.Pool
	Store    Store
	Sessions SessionStore
	Cipher   *security.SecretCipher
	Issuer   string
}

type ProfileInput struct {
	Email       string
	DisplayName string
	Bio         string
}

// sessionData is this service's view of the opaque session payload. The
// pending secret lives here, not on the user row, until the code is
// confirmed.
type sessionData struct {
	PendingTOTPSecret string `json:"pending_totp_secret,omitempty"`
}

func NewService(deps Dependencies) *Service {
	issuer := strings.TrimSpace(deps.Issuer)
	if issuer == "" {
		issuer = "book-share"
	}
	svc := &Service{
		store:    deps.Store,
		sessions: deps.Sessions,
		cipher:   deps.Cipher,
		issuer:   issuer,
		now:      time.Now,
	}
	if deps.Pool != nil {
		pool := deps.Pool
		svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}
	return svc
}

func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (model.User, error) {
	if s.runTx == nil || s.store == nil {
		return model.User{}, fmt.Errorf("user dependencies are not configured")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, fmt.Errorf("invalid email: %w", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return model.User{}, fmt.Errorf("password too short: %w", ErrValidation)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created model.User
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := versioning.CheckDuplicate(txCtx, 0, func(c context.Context) (model.User, bool, error) {
			return s.store.FindByEmailTx(c, tx, email)
		}); err != nil {
			return err
		}

		user, err := s.store.Create(txCtx, tx, email, hash, displayName)
		if err != nil {
			if errors.Is(err, pgrepo.ErrEmailTaken) {
				return versioning.ErrDuplicate
			}
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	return created, nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (model.User, error) {
	if s.store == nil {
		return model.User{}, fmt.Errorf("user store is nil")
	}

	user, err := s.store.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, versioning.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

// UpdateProfile is a versioned mutation: the caller echoes the updated_at it
// last saw, the check and the write share one transaction, and the write
// re-asserts the stamp in its predicate.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, claimed time.Time, in ProfileInput) (model.User, error) {
	if s.runTx == nil || s.store == nil {
		return model.User{}, fmt.Errorf("user dependencies are not configured")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if userID <= 0 || email == "" || !strings.Contains(email, "@") || claimed.IsZero() {
		return model.User{}, fmt.Errorf("invalid profile payload: %w", ErrValidation)
	}

	var updated model.User
	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.User, error) {
			user, err := s.store.FindActiveByIDTx(c, tx, userID)
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return model.User{}, versioning.ErrNotFound
			}
			return user, err
		}); err != nil {
			return err
		}

		if err := versioning.CheckDuplicate(txCtx, userID, func(c context.Context) (model.User, bool, error) {
			return s.store.FindByEmailTx(c, tx, email)
		}); err != nil {
			return err
		}

		user, err := s.store.UpdateProfile(txCtx, tx, userID, claimed, email, in.DisplayName, in.Bio)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				// The check passed, so the row moved between check and write.
				return versioning.ErrStaleWrite
			}
			if errors.Is(err, pgrepo.ErrEmailTaken) {
				return versioning.ErrDuplicate
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	return updated, nil
}

// Deactivate soft-deletes the account so live sessions degrade to anonymous,
// then destroys the caller's own session.
func (s *Service) Deactivate(ctx context.Context, userID int64, claimed time.Time, sid string) error {
	if s.runTx == nil || s.store == nil {
		return fmt.Errorf("user dependencies are not configured")
	}
	if userID <= 0 || claimed.IsZero() {
		return fmt.Errorf("invalid deactivate payload: %w", ErrValidation)
	}

	err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := versioning.CheckCurrent(txCtx, claimed, func(c context.Context) (model.User, error) {
			user, err := s.store.FindActiveByIDTx(c, tx, userID)
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return model.User{}, versioning.ErrNotFound
			}
			return user, err
		}); err != nil {
			return err
		}

		ok, err := s.store.Deactivate(txCtx, tx, userID, claimed)
		if err != nil {
			return err
		}
		if !ok {
			return versioning.ErrStaleWrite
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.sessions != nil && sid != "" {
		if err := s.sessions.Destroy(ctx, sid); err != nil {
			return fmt.Errorf("destroy session after deactivate: %w", err)
		}
	}

	return nil
}

// TwoFactorEnroll generates a fresh secret, encrypts it, and parks it in the
// caller's session payload until TwoFactorConfirm proves code possession.
func (s *Service) TwoFactorEnroll(ctx context.Context, userID int64, sid string) (secret string, qrDataURL string, err error) {
	if s.store == nil || s.sessions == nil || s.cipher == nil {
		return "", "", fmt.Errorf("two factor dependencies are not configured")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", "", err
	}

	plainSecret, otpURL, err := security.GenerateTOTPSecret(s.issuer, user.Email)
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(plainSecret)
	if err != nil {
		return "", "", fmt.Errorf("encrypt totp secret: %w", err)
	}

	if err := s.patchSessionData(ctx, sid, func(data *sessionData) {
		data.PendingTOTPSecret = encrypted
	}); err != nil {
		return "", "", err
	}

	qr, err := security.MakeQRCodeDataURL(otpURL, 256)
	if err != nil {
		return "", "", fmt.Errorf("encode qr code: %w", err)
	}

	return plainSecret, qr, nil
}

func (s *Service) TwoFactorConfirm(ctx context.Context, userID int64, sid, code string) (model.User, error) {
	if s.runTx == nil || s.store == nil || s.sessions == nil || s.cipher == nil {
		return model.User{}, fmt.Errorf("two factor dependencies are not configured")
	}

	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return model.User{}, fmt.Errorf("load session for confirm: %w", err)
	}
	if sess == nil {
		return model.User{}, ErrNoEnrollment
	}

	var data sessionData
	if len(sess.Payload) > 0 {
		if err := json.Unmarshal(sess.Payload, &data); err != nil {
			return model.User{}, fmt.Errorf("decode session payload: %w", err)
		}
	}
	if data.PendingTOTPSecret == "" {
		return model.User{}, ErrNoEnrollment
	}

	plainSecret, err := s.cipher.Decrypt(data.PendingTOTPSecret)
	if err != nil {
		return model.User{}, fmt.Errorf("decrypt pending secret: %w", err)
	}
	if !security.ValidateTOTP(plainSecret, code, s.now()) {
		return model.User{}, ErrTwoFactorCode
	}

	var updated model.User
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		user, err := s.store.SetTwoFactor(txCtx, tx, userID, data.PendingTOTPSecret, true)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return versioning.ErrNotFound
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	if err := s.patchSessionData(ctx, sid, func(data *sessionData) {
		data.PendingTOTPSecret = ""
	}); err != nil {
		return model.User{}, err
	}

	return updated, nil
}

func (s *Service) TwoFactorDisable(ctx context.Context, userID int64, code string) (model.User, error) {
	if s.runTx == nil || s.store == nil || s.cipher == nil {
		return model.User{}, fmt.Errorf("two factor dependencies are not configured")
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if !user.TOTPEnabled {
		return user, nil
	}

	plainSecret, err := s.cipher.Decrypt(user.TOTPSecret)
	if err != nil {
		return model.User{}, fmt.Errorf("decrypt totp secret: %w", err)
	}
	if !security.ValidateTOTP(plainSecret, code, s.now()) {
		return model.User{}, ErrTwoFactorCode
	}

	var updated model.User
	err = s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		u, err := s.store.SetTwoFactor(txCtx, tx, userID, "", false)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return versioning.ErrNotFound
			}
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	return updated, nil
}

func (s *Service) patchSessionData(ctx context.Context, sid string, patch func(*sessionData)) error {
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return ErrNoEnrollment
	}

	var data sessionData
	if len(sess.Payload) > 0 {
		if err := json.Unmarshal(sess.Payload, &data); err != nil {
			return fmt.Errorf("decode session payload: %w", err)
		}
	}
	patch(&data)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}

	sess.Payload = payload
	if _, err := s.sessions.Set(ctx, *sess); err != nil {
		return fmt.Errorf("store session payload: %w", err)
	}
	return nil
}
