package identity

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestDirectory(t *testing.T) (*RedisDirectory, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	d, err := NewRedisDirectory(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		mr.Close()
		t.Fatalf("NewRedisDirectory: %v", err)
	}
	return d, func() {
		_ = d.Close()
		mr.Close()
	}
}

func TestPutLookupRoundTrip(t *testing.T) {
	d, cleanup := newTestDirectory(t)
	defer cleanup()
	ctx := context.Background()

	if err := d.Put(ctx, Identity{UserID: "u1", DisplayName: "Alice"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := d.Lookup(ctx, "u1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.UserID != "u1" || got.DisplayName != "Alice" {
		t.Fatalf("Lookup = %+v", got)
	}
}

func TestLookupMissing(t *testing.T) {
	d, cleanup := newTestDirectory(t)
	defer cleanup()

	if _, err := d.Lookup(context.Background(), "ghost"); err != ErrNotFound {
		t.Fatalf("Lookup missing err = %v, want ErrNotFound", err)
	}
	if _, err := d.Lookup(context.Background(), "  "); err != ErrNotFound {
		t.Fatalf("Lookup blank err = %v, want ErrNotFound", err)
	}
}

func TestPutRequiresUserID(t *testing.T) {
	d, cleanup := newTestDirectory(t)
	defer cleanup()

	if err := d.Put(context.Background(), Identity{DisplayName: "nobody"}); err == nil {
		t.Fatalf("expected error for identity without user id")
	}
}

func TestBadRedisURL(t *testing.T) {
	if _, err := NewRedisDirectory("http://localhost:6379"); err == nil {
		t.Fatalf("expected error for non-redis scheme")
	}
	if _, err := NewRedisDirectory(""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
