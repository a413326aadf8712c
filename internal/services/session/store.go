package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
)

// CookieName is the session cookie the transport layer manages. The store
// itself never touches cookies.
const CookieName = "book_share_session"

const defaultTTL = 24 * time.Hour

// Repo is the relational backing of the store. Find returns
// postgres.ErrSessionNotFound for a missing row; Upsert must be a single
// conditional write, never read-modify-write.
type Repo interface {
	Find(ctx context.Context, id string) (model.Session, error)
	Upsert(ctx context.Context, sess model.Session) (model.Session, error)
	Delete(ctx context.Context, id string) error
}

type Config struct {
	TTL     time.Duration
	Rolling bool
}

// Store is the durable session store: a key-value contract over the sessions
// table, so session state survives restarts and is shared across instances.
type Store struct {
	repo Repo
	cfg  Config
	now  func() time.Time
}

func NewStore(repo Repo, cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &Store{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
	}
}

// NewToken returns an opaque session key with 256 bits of entropy.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a fresh session row with a new token. userID nil means
// anonymous. The payload bytes are stored as-is.
func (s *Store) Issue(ctx context.Context, userID *int64, payload []byte) (model.Session, error) {
	if s.repo == nil {
		return model.Session{}, fmt.Errorf("session repo is nil")
	}

	token, err := NewToken()
	if err != nil {
		return model.Session{}, err
	}

	return s.repo.Upsert(ctx, model.Session{
		ID:        token,
		UserID:    userID,
		Payload:   payload,
		ExpiresAt: s.now().Add(s.cfg.TTL).UTC(),
	})
}

// Get resolves a session key. A missing row and an expired row are both
// reported as absence (nil, nil); expired rows are removed best-effort, so
// an expired session behaves as destroyed even if the delete fails.
// Repo failures propagate unchanged.
func (s *Store) Get(ctx context.Context, id string) (*model.Session, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("session repo is nil")
	}

	sess, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !sess.ExpiresAt.After(s.now()) {
		_ = s.repo.Delete(ctx, id)
		return nil, nil
	}

	return &sess, nil
}

// Set overwrites every stored field for the key, inserting the row if it does
// not exist yet.
func (s *Store) Set(ctx context.Context, sess model.Session) (model.Session, error) {
	if s.repo == nil {
		return model.Session{}, fmt.Errorf("session repo is nil")
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = s.now().Add(s.cfg.TTL).UTC()
	}
	return s.repo.Upsert(ctx, sess)
}

// Touch extends a live session's expiry when rolling expiry is configured.
// With fixed expiry it is a no-op.
func (s *Store) Touch(ctx context.Context, sess model.Session) (model.Session, error) {
	if s.repo == nil {
		return model.Session{}, fmt.Errorf("session repo is nil")
	}
	if !s.cfg.Rolling {
		return sess, nil
	}

	sess.ExpiresAt = s.now().Add(s.cfg.TTL).UTC()
	return s.repo.Upsert(ctx, sess)
}

// Destroy removes the session; destroying an absent key is not an error.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if s.repo == nil {
		return fmt.Errorf("session repo is nil")
	}
	return s.repo.Delete(ctx, id)
}
