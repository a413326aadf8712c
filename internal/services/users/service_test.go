package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp/totp"

	"github.com/oktntko/book-share/internal/domain/model"
	pgrepo "github.com/oktntko/book-share/internal/repo/postgres"
	"github.com/oktntko/book-share/internal/security"
	"github.com/oktntko/book-share/internal/services/versioning"
)

type fakeStore struct {
	byID    map[int64]model.User
	byEmail map[string]model.User
	nextID    int64
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:    map[int64]model.User{},
		byEmail: map[string]model.User{},
		nextID:  1,
	}
}

func (f *fakeStore) put(user model.User) {
	f.byID[user.ID] = user
	f.byEmail[user.Email] = user
}

func (f *fakeStore) Create(_ context.Context, _ pgx.Tx, email, passwordHash, displayName string) (model.User, error) {
	if _, exists := f.byEmail[email]; exists {
		return model.User{}, pgrepo.ErrEmailTaken
	}
	user := model.User{
		ID:           f.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.nextID++
	f.put(user)
	return user, nil
}

func (f *fakeStore) FindActiveByID(_ context.Context, id int64) (model.User, error) {
	user, ok := f.byID[id]
	if !ok || user.DeactivatedAt != nil {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) FindActiveByIDTx(ctx context.Context, _ pgx.Tx, id int64) (model.User, error) {
	return f.FindActiveByID(ctx, id)
}

func (f *fakeStore) FindByEmailTx(_ context.Context, _ pgx.Tx, email string) (model.User, bool, error) {
	user, ok := f.byEmail[email]
	return user, ok, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, _ pgx.Tx, userID int64, claimed time.Time, email, displayName, bio string) (model.User, error) {
	if f.updateErr != nil {
		return model.User{}, f.updateErr
	}
	user, ok := f.byID[userID]
	if !ok || !user.UpdatedAt.Equal(claimed) {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	delete(f.byEmail, user.Email)
	user.Email = email
	user.DisplayName = displayName
	user.Bio = bio
	user.UpdatedAt = user.UpdatedAt.Add(time.Millisecond)
	f.put(user)
	return user, nil
}

func (f *fakeStore) SetTwoFactor(_ context.Context, _ pgx.Tx, userID int64, encryptedSecret string, enabled bool) (model.User, error) {
	user, ok := f.byID[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	user.TOTPSecret = encryptedSecret
	user.TOTPEnabled = enabled
	user.UpdatedAt = user.UpdatedAt.Add(time.Millisecond)
	f.put(user)
	return user, nil
}

func (f *fakeStore) Deactivate(_ context.Context, _ pgx.Tx, userID int64, claimed time.Time) (bool, error) {
	user, ok := f.byID[userID]
	if !ok || !user.UpdatedAt.Equal(claimed) {
		return false, nil
	}
	now := time.Now()
	user.DeactivatedAt = &now
	f.put(user)
	return true, nil
}

type fakeSessions struct {
	rows      map[string]model.Session
	destroyed []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]model.Session{}}
}

func (f *fakeSessions) Get(_ context.Context, id string) (*model.Session, error) {
	sess, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (f *fakeSessions) Set(_ context.Context, sess model.Session) (model.Session, error) {
	f.rows[sess.ID] = sess
	return sess, nil
}

func (f *fakeSessions) Destroy(_ context.Context, id string) error {
	f.destroyed = append(f.destroyed, id)
	delete(f.rows, id)
	return nil
}

func testCipher(t *testing.T) *security.SecretCipher {
	t.Helper()
	cipher, err := security.NewSecretCipher(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("create cipher: %v", err)
	}
	return cipher
}

func newTestService(t *testing.T, store *fakeStore, sessions *fakeSessions) *Service {
	t.Helper()
	svc := NewService(Dependencies{
		Store:    store,
		Sessions: sessions,
		Cipher:   testCipher(t),
		Issuer:   "book-share-test",
	})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func seedUser(t *testing.T, store *fakeStore, email string) model.User {
	t.Helper()
	user, err := store.Create(context.Background(), nil, email, "x", "seed")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestSignUpCreatesUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, newFakeSessions())

	user, err := svc.SignUp(context.Background(), "Reader@Example.com", "correct horse", "reader")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("email must be normalized: %q", user.Email)
	}
	if err := security.CheckPassword(user.PasswordHash, "correct horse"); err != nil {
		t.Fatalf("stored hash must verify: %v", err)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "reader@example.com")
	svc := newTestService(t, store, newFakeSessions())

	_, err := svc.SignUp(context.Background(), "reader@example.com", "correct horse", "other")
	if !errors.Is(err, versioning.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc := newTestService(t, newFakeStore(), newFakeSessions())

	_, err := svc.SignUp(context.Background(), "reader@example.com", "short", "reader")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateProfileAcceptsMatchingStamp(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	svc := newTestService(t, store, newFakeSessions())

	updated, err := svc.UpdateProfile(context.Background(), user.ID, user.UpdatedAt, ProfileInput{
		Email:       "reader@example.com",
		DisplayName: "renamed",
		Bio:         "reads a lot",
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.DisplayName != "renamed" || updated.Bio != "reads a lot" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if !updated.UpdatedAt.After(user.UpdatedAt) {
		t.Fatalf("updated_at must advance on write")
	}
}

func TestUpdateProfileRejectsStaleStamp(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	svc := newTestService(t, store, newFakeSessions())

	_, err := svc.UpdateProfile(context.Background(), user.ID, user.UpdatedAt.Add(-time.Second), ProfileInput{
		Email: "reader@example.com",
	})
	if !errors.Is(err, versioning.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}
}

func TestUpdateProfileRejectsMissingUser(t *testing.T) {
	svc := newTestService(t, newFakeStore(), newFakeSessions())

	_, err := svc.UpdateProfile(context.Background(), 404, time.Now(), ProfileInput{Email: "a@b.c"})
	if !errors.Is(err, versioning.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProfileAllowsKeepingOwnEmail(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	svc := newTestService(t, store, newFakeSessions())

	if _, err := svc.UpdateProfile(context.Background(), user.ID, user.UpdatedAt, ProfileInput{
		Email:       "reader@example.com",
		DisplayName: "same email",
	}); err != nil {
		t.Fatalf("own email must not count as duplicate: %v", err)
	}
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	store := newFakeStore()
	seedUser(t, store, "taken@example.com")
	user := seedUser(t, store, "reader@example.com")
	svc := newTestService(t, store, newFakeSessions())

	_, err := svc.UpdateProfile(context.Background(), user.ID, user.UpdatedAt, ProfileInput{
		Email: "taken@example.com",
	})
	if !errors.Is(err, versioning.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestUpdateProfileMapsRowMovedUnderCheckToStale(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	store.updateErr = pgrepo.ErrUserNotFound
	svc := newTestService(t, store, newFakeSessions())

	_, err := svc.UpdateProfile(context.Background(), user.ID, user.UpdatedAt, ProfileInput{
		Email: "reader@example.com",
	})
	if !errors.Is(err, versioning.ErrStaleWrite) {
		t.Fatalf("expected ErrStaleWrite, got %v", err)
	}
}

func TestDeactivateDestroysOwnSession(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	sessions := newFakeSessions()
	sessions.rows["sid-1"] = model.Session{ID: "sid-1", UserID: &user.ID}
	svc := newTestService(t, store, sessions)

	if err := svc.Deactivate(context.Background(), user.ID, user.UpdatedAt, "sid-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := store.FindActiveByID(context.Background(), user.ID); !errors.Is(err, pgrepo.ErrUserNotFound) {
		t.Fatalf("deactivated user must read as absent, got %v", err)
	}
	if len(sessions.destroyed) != 1 || sessions.destroyed[0] != "sid-1" {
		t.Fatalf("session must be destroyed: %v", sessions.destroyed)
	}
}

func TestTwoFactorEnrollThenConfirm(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	sessions := newFakeSessions()
	sessions.rows["sid-1"] = model.Session{ID: "sid-1", UserID: &user.ID}
	svc := newTestService(t, store, sessions)
	svc.now = func() time.Time { return time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC) }

	secret, qr, err := svc.TwoFactorEnroll(context.Background(), user.ID, "sid-1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if secret == "" || !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Fatalf("unexpected enrollment output: secret=%q qr=%.40q", secret, qr)
	}

	var data sessionData
	if err := json.Unmarshal(sessions.rows["sid-1"].Payload, &data); err != nil {
		t.Fatalf("decode session payload: %v", err)
	}
	if data.PendingTOTPSecret == "" || data.PendingTOTPSecret == secret {
		t.Fatalf("pending secret must be parked encrypted, got %q", data.PendingTOTPSecret)
	}

	if _, err := svc.TwoFactorConfirm(context.Background(), user.ID, "sid-1", "000000"); !errors.Is(err, ErrTwoFactorCode) {
		t.Fatalf("expected ErrTwoFactorCode, got %v", err)
	}

	code, err := totp.GenerateCode(secret, svc.now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	updated, err := svc.TwoFactorConfirm(context.Background(), user.ID, "sid-1", code)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !updated.TOTPEnabled || updated.TOTPSecret == "" {
		t.Fatalf("two factor must be enabled after confirm: %+v", updated)
	}

	data = sessionData{}
	if err := json.Unmarshal(sessions.rows["sid-1"].Payload, &data); err != nil {
		t.Fatalf("decode session payload: %v", err)
	}
	if data.PendingTOTPSecret != "" {
		t.Fatalf("pending secret must be cleared after confirm")
	}
}

func TestTwoFactorConfirmWithoutEnrollment(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	sessions := newFakeSessions()
	sessions.rows["sid-1"] = model.Session{ID: "sid-1", UserID: &user.ID}
	svc := newTestService(t, store, sessions)

	_, err := svc.TwoFactorConfirm(context.Background(), user.ID, "sid-1", "123456")
	if !errors.Is(err, ErrNoEnrollment) {
		t.Fatalf("expected ErrNoEnrollment, got %v", err)
	}
}

func TestTwoFactorDisableDemandsValidCode(t *testing.T) {
	store := newFakeStore()
	user := seedUser(t, store, "reader@example.com")
	sessions := newFakeSessions()
	sessions.rows["sid-1"] = model.Session{ID: "sid-1", UserID: &user.ID}
	svc := newTestService(t, store, sessions)
	svc.now = func() time.Time { return time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC) }

	secret, _, err := svc.TwoFactorEnroll(context.Background(), user.ID, "sid-1")
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	code, err := totp.GenerateCode(secret, svc.now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if _, err := svc.TwoFactorConfirm(context.Background(), user.ID, "sid-1", code); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := svc.TwoFactorDisable(context.Background(), user.ID, "000000"); !errors.Is(err, ErrTwoFactorCode) {
		t.Fatalf("expected ErrTwoFactorCode, got %v", err)
	}

	code, err = totp.GenerateCode(secret, svc.now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	updated, err := svc.TwoFactorDisable(context.Background(), user.ID, code)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if updated.TOTPEnabled || updated.TOTPSecret != "" {
		t.Fatalf("two factor must be cleared: %+v", updated)
	}
}
