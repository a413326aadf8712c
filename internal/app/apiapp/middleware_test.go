package apiapp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oktntko/book-share/internal/domain/model"
	authsvc "github.com/oktntko/book-share/internal/services/auth"
	sessionsvc "github.com/oktntko/book-share/internal/services/session"
	"github.com/oktntko/book-share/internal/services/versioning"
)

type fakeSessionGetter struct {
	sessions map[string]*model.Session
	err      error
}

func (f *fakeSessionGetter) Get(_ context.Context, id string) (*model.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[id], nil
}

type fakeUserResolver struct {
	users map[int64]model.User
}

func (f *fakeUserResolver) GetProfile(_ context.Context, userID int64) (model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return model.User{}, versioning.ErrNotFound
	}
	return user, nil
}

func newIdentityProbe(sessions *fakeSessionGetter, users *fakeUserResolver) chi.Router {
	r := chi.NewRouter()
	r.Use(SessionMiddleware(sessions, users, nil))
	r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := authsvc.IdentityFromContext(r.Context())
		if !ok {
			w.Header().Set("X-Identity", "anonymous")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("X-Identity", identity.Email)
		w.WriteHeader(http.StatusOK)
	})
	r.With(RequireUser()).Get("/private", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{Name: sessionsvc.CookieName, Value: value}
}

func TestSessionMiddlewareResolvesIdentity(t *testing.T) {
	userID := int64(7)
	sessions := &fakeSessionGetter{sessions: map[string]*model.Session{
		"sid-1": {ID: "sid-1", UserID: &userID},
	}}
	users := &fakeUserResolver{users: map[int64]model.User{
		7: {ID: 7, Email: "reader@example.com", DisplayName: "Reader"},
	}}
	router := newIdentityProbe(sessions, users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie("sid-1"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Identity"); got != "reader@example.com" {
		t.Fatalf("expected resolved identity, got %q", got)
	}
}

func TestSessionMiddlewareWithoutCookieIsAnonymous(t *testing.T) {
	router := newIdentityProbe(&fakeSessionGetter{}, &fakeUserResolver{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("anonymous request must pass: got %d", rr.Code)
	}
	if got := rr.Header().Get("X-Identity"); got != "anonymous" {
		t.Fatalf("expected anonymous identity, got %q", got)
	}
}

func TestSessionMiddlewareUnknownSessionIsAnonymous(t *testing.T) {
	router := newIdentityProbe(&fakeSessionGetter{sessions: map[string]*model.Session{}}, &fakeUserResolver{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie("gone"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Identity"); got != "anonymous" {
		t.Fatalf("expired or unknown session must degrade to anonymous, got %q", got)
	}
}

func TestSessionMiddlewareStoreFailureIsAnonymous(t *testing.T) {
	sessions := &fakeSessionGetter{err: errors.New("connection refused")}
	router := newIdentityProbe(sessions, &fakeUserResolver{})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie("sid-1"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("store failure must not break the request: got %d", rr.Code)
	}
	if got := rr.Header().Get("X-Identity"); got != "anonymous" {
		t.Fatalf("store failure must degrade to anonymous, got %q", got)
	}
}

func TestSessionMiddlewareDeactivatedUserIsAnonymous(t *testing.T) {
	userID := int64(7)
	sessions := &fakeSessionGetter{sessions: map[string]*model.Session{
		"sid-1": {ID: "sid-1", UserID: &userID},
	}}
	router := newIdentityProbe(sessions, &fakeUserResolver{users: map[int64]model.User{}})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(sessionCookie("sid-1"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Identity"); got != "anonymous" {
		t.Fatalf("session of a deactivated user must degrade to anonymous, got %q", got)
	}
}

func TestRequireUserRejectsAnonymous(t *testing.T) {
	router := newIdentityProbe(&fakeSessionGetter{}, &fakeUserResolver{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/private", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous caller must be rejected: got %d", rr.Code)
	}
}

func TestRequireUserAdmitsAuthenticated(t *testing.T) {
	userID := int64(7)
	sessions := &fakeSessionGetter{sessions: map[string]*model.Session{
		"sid-1": {ID: "sid-1", UserID: &userID},
	}}
	users := &fakeUserResolver{users: map[int64]model.User{
		7: {ID: 7, Email: "reader@example.com"},
	}}
	router := newIdentityProbe(sessions, users)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(sessionCookie("sid-1"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated caller must pass: got %d", rr.Code)
	}
}
