package rediscache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lborres/webpro/core"
)

// newTestCache connects to WEBPRO_TEST_REDIS_URL and skips otherwise
func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	url := os.Getenv("WEBPRO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("WEBPRO_TEST_REDIS_URL not set")
	}

	client, err := Open(context.Background(), url)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	c := New(client, core.CacheConfig{TTL: ttl})
	c.prefix = "webpro:test:" + t.Name() + ":"
	t.Cleanup(func() { c.Clear() })
	return c
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(nil, core.CacheConfig{})

	if c.ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", c.ttl)
	}
	if c.key("abc") != DefaultPrefix+"abc" {
		t.Errorf("key() = %q", c.key("abc"))
	}
}

func TestOpen_InvalidURL(t *testing.T) {
	if _, err := Open(context.Background(), "not a url"); err == nil {
		t.Error("Open() should reject a malformed url")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	// Arrange
	c := newTestCache(t, time.Minute)
	v := &core.Verification{Email: "pro@example.com", ReferenceID: 42, State: &core.NamedPlace{Name: "Texas"}}

	// Act
	if err := c.Set("hash1", v); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get("hash1")

	// Assert
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != v.Email || got.ReferenceID != 42 || got.State == nil || got.State.Name != "Texas" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestCache_Misses(t *testing.T) {
	c := newTestCache(t, time.Minute)

	if _, err := c.Get("absent"); !errors.Is(err, core.ErrCacheNotFound) {
		t.Errorf("Get(absent) error = %v, want ErrCacheNotFound", err)
	}

	c.Set("gone", &core.Verification{Email: "a@b.c", ReferenceID: 1})
	c.Delete("gone")
	if _, err := c.Get("gone"); !errors.Is(err, core.ErrCacheNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrCacheNotFound", err)
	}
}

// Requirement: entries expire after the ttl.
func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t, time.Second)
	c.Set("short", &core.Verification{Email: "a@b.c", ReferenceID: 1})

	time.Sleep(1500 * time.Millisecond)

	if _, err := c.Get("short"); !errors.Is(err, core.ErrCacheNotFound) {
		t.Errorf("Get() after ttl error = %v, want ErrCacheNotFound", err)
	}
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, time.Minute)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, &core.Verification{Email: k + "@example.com", ReferenceID: 1})
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if _, err := c.Get(k); !errors.Is(err, core.ErrCacheNotFound) {
			t.Errorf("Get(%s) after Clear error = %v", k, err)
		}
	}
}
