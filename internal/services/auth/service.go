package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oktntko/book-share/internal/domain/model"
	"github.com/oktntko/book-share/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTwoFactorRequired  = errors.New("two factor code required")
	ErrTwoFactorInvalid   = errors.New("two factor code invalid")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, bool, error)
}

type SessionStore interface {
	Issue(ctx context.Context, userID *int64, payload []byte) (model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Touch(ctx context.Context, sess model.Session) (model.Session, error)
	Destroy(ctx context.Context, id string) error
}

type Service struct {
	users    UserStore
	sessions SessionStore
	cipher   *security.SecretCipher
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, cipher *security.SecretCipher) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		cipher:   cipher,
		now:      time.Now,
	}
}

// SignIn verifies the password and, when the account has two-factor enabled,
// the TOTP code, then issues a fresh session bound to the user.
func (s *Service) SignIn(ctx context.Context, email, password, totpCode string) (model.Session, model.User, error) {
	if s.users == nil || s.sessions == nil {
		return model.Session{}, model.User{}, fmt.Errorf("auth dependencies are not configured")
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}

	user, found, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return model.Session{}, model.User{}, fmt.Errorf("find user for sign in: %w", err)
	}
	if !found {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}

	if err := security.CheckPassword(user.PasswordHash, password); err != nil {
		return model.Session{}, model.User{}, ErrInvalidCredentials
	}

	if user.TOTPEnabled {
		if strings.TrimSpace(totpCode) == "" {
			return model.Session{}, model.User{}, ErrTwoFactorRequired
		}
		secret, err := s.cipher.Decrypt(user.TOTPSecret)
		if err != nil {
			return model.Session{}, model.User{}, fmt.Errorf("decrypt totp secret: %w", err)
		}
		if !security.ValidateTOTP(secret, totpCode, s.now()) {
			return model.Session{}, model.User{}, ErrTwoFactorInvalid
		}
	}

	sess, err := s.sessions.Issue(ctx, &user.ID, nil)
	if err != nil {
		return model.Session{}, model.User{}, fmt.Errorf("issue session: %w", err)
	}

	return sess, user, nil
}

// Refresh renews a live session's expiry (a no-op with fixed expiry).
func (s *Service) Refresh(ctx context.Context, sid string) (model.Session, error) {
	if s.sessions == nil {
		return model.Session{}, fmt.Errorf("session store is nil")
	}

	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return model.Session{}, fmt.Errorf("load session for refresh: %w", err)
	}
	if sess == nil {
		return model.Session{}, ErrInvalidCredentials
	}

	return s.sessions.Touch(ctx, *sess)
}

func (s *Service) SignOut(ctx context.Context, sid string) error {
	if s.sessions == nil {
		return fmt.Errorf("session store is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sid)
}
