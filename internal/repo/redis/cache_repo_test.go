package redis

import (
	"bytes"
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRepo(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheRepo(client), mr
}

func TestCacheRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)

	payload := []byte(`{"isbn":"9784101010014","title":"Kokoro"}`)
	if err := repo.Set(context.Background(), "isbn:9784101010014", payload, time.Minute); err != nil {
		t.Fatalf("set cache: %v", err)
	}

	got, found, err := repo.Get(context.Background(), "isbn:9784101010014")
	if err != nil {
		t.Fatalf("get cache: %v", err)
	}
	if !found {
		t.Fatalf("expected cache hit")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("unexpected cached value: got %q want %q", got, payload)
	}
}

func TestCacheMiss(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, found, err := repo.Get(context.Background(), "isbn:none")
	if err != nil {
		t.Fatalf("get cache: %v", err)
	}
	if found {
		t.Fatalf("expected cache miss")
	}
}

func TestCacheExpires(t *testing.T) {
	repo, mr := newTestRepo(t)

	if err := repo.Set(context.Background(), "isbn:ttl", []byte("x"), time.Second); err != nil {
		t.Fatalf("set cache: %v", err)
	}

	mr.FastForward(2 * time.Second)

	_, found, err := repo.Get(context.Background(), "isbn:ttl")
	if err != nil {
		t.Fatalf("get cache: %v", err)
	}
	if found {
		t.Fatalf("expected key to expire")
	}
}
