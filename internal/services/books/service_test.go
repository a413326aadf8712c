package books

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redisrepo "github.com/oktntko/book-share/internal/repo/redis"
)

const volumePayload = `{
	"totalItems": 1,
	"items": [{
		"volumeInfo": {
			"title": "Kokoro",
			"authors": ["Natsume Soseki"],
			"publisher": "Shinchosha",
			"publishedDate": "1914",
			"description": "A novel.",
			"pageCount": 300,
			"imageLinks": {"thumbnail": "https://covers.local/kokoro.jpg"}
		}
	}]
}`

func newCatalogServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		query := r.URL.Query().Get("q")
		if !strings.HasPrefix(query, "isbn:") {
			t.Errorf("unexpected query %q", query)
		}
		if strings.Contains(query, "0000000000000") {
			fmt.Fprint(w, `{"totalItems": 0}`)
			return
		}
		fmt.Fprint(w, volumePayload)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestCache(t *testing.T) (*redisrepo.CacheRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisrepo.NewCacheRepo(client), mr
}

func newTestService(t *testing.T, baseURL string, cache Cache, ttl time.Duration) *Service {
	t.Helper()
	client, err := NewCatalogClient(baseURL, nil)
	if err != nil {
		t.Fatalf("create catalog client: %v", err)
	}
	return NewService(client, cache, ttl, nil)
}

func TestLookupFetchesAndCaches(t *testing.T) {
	hits := 0
	server := newCatalogServer(t, &hits)
	cache, _ := newTestCache(t)
	svc := newTestService(t, server.URL, cache, time.Hour)

	book, err := svc.Lookup(context.Background(), "9784101010014")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if book.Title != "Kokoro" || book.PageCount != 300 || book.ThumbnailURL == "" {
		t.Fatalf("unexpected book: %+v", book)
	}

	if _, err := svc.Lookup(context.Background(), "9784101010014"); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if hits != 1 {
		t.Fatalf("second lookup must come from cache, got %d upstream hits", hits)
	}
}

func TestLookupCachesNegativeAnswers(t *testing.T) {
	hits := 0
	server := newCatalogServer(t, &hits)
	cache, _ := newTestCache(t)
	svc := newTestService(t, server.URL, cache, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := svc.Lookup(context.Background(), "0000000000000")
		if !errors.Is(err, ErrVolumeNotFound) {
			t.Fatalf("expected ErrVolumeNotFound, got %v", err)
		}
	}
	if hits != 1 {
		t.Fatalf("unknown isbn must be cached too, got %d upstream hits", hits)
	}
}

func TestLookupRefetchesAfterTTL(t *testing.T) {
	hits := 0
	server := newCatalogServer(t, &hits)
	cache, mr := newTestCache(t)
	svc := newTestService(t, server.URL, cache, time.Minute)

	if _, err := svc.Lookup(context.Background(), "9784101010014"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := svc.Lookup(context.Background(), "9784101010014"); err != nil {
		t.Fatalf("lookup after expiry: %v", err)
	}
	if hits != 2 {
		t.Fatalf("expired entry must refetch, got %d upstream hits", hits)
	}
}

func TestLookupManySkipsUnknownISBNs(t *testing.T) {
	hits := 0
	server := newCatalogServer(t, &hits)
	cache, _ := newTestCache(t)
	svc := newTestService(t, server.URL, cache, time.Hour)

	books, err := svc.LookupMany(context.Background(), []string{
		"9784101010014",
		"0000000000000",
		"9784101010014",
		"",
	})
	if err != nil {
		t.Fatalf("lookup many: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected one resolved book, got %d", len(books))
	}
	if hits != 2 {
		t.Fatalf("duplicates and blanks must not hit upstream, got %d hits", hits)
	}
}

func TestLookupWorksWithoutCache(t *testing.T) {
	hits := 0
	server := newCatalogServer(t, &hits)
	svc := newTestService(t, server.URL, nil, time.Hour)

	if _, err := svc.Lookup(context.Background(), "9784101010014"); err != nil {
		t.Fatalf("lookup without cache: %v", err)
	}
}

func TestNewCatalogClientRejectsBadURL(t *testing.T) {
	if _, err := NewCatalogClient("", nil); err == nil {
		t.Fatalf("empty base url must fail")
	}
	if _, err := NewCatalogClient("not a url", nil); err == nil {
		t.Fatalf("relative base url must fail")
	}
}
