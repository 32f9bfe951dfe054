package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRepository(t *testing.T) (*RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(srv.Close)

	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRateLimitRepository(client, SlidingWindowConfig{
		KeyPrefix: "ratelimit:login",
		TTL:       time.Minute,
	})
	return repo, srv
}

func TestRateLimitRepository_CountWithinWindow(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		at := now.Add(time.Duration(-i*10) * time.Second)
		if err := repo.RecordAttempt(ctx, "198.51.100.10", at); err != nil {
			t.Fatalf("RecordAttempt returned error: %v", err)
		}
	}
	// Outside the one-minute window.
	if err := repo.RecordAttempt(ctx, "198.51.100.10", now.Add(-2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "198.51.100.10", time.Minute, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 attempts inside window, got %d", count)
	}
}

func TestRateLimitRepository_TrimWindowDropsStaleEntries(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	if err := repo.RecordAttempt(ctx, "client", now.Add(-3*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "client", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	if err := repo.TrimWindow(ctx, "client", time.Minute, now); err != nil {
		t.Fatalf("TrimWindow returned error: %v", err)
	}

	count, err := repo.CountAttempts(ctx, "client", time.Hour, now)
	if err != nil {
		t.Fatalf("CountAttempts returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected stale entry removed, got %d attempts", count)
	}
}

func TestRateLimitRepository_OldestAttempt(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	now := time.Now()

	oldest := now.Add(-30 * time.Second)
	if err := repo.RecordAttempt(ctx, "client", oldest); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	if err := repo.RecordAttempt(ctx, "client", now); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}

	got, ok, err := repo.OldestAttempt(ctx, "client", time.Minute, now)
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected an attempt inside the window")
	}
	if got.UnixNano() != oldest.UnixNano() {
		t.Fatalf("expected oldest %v, got %v", oldest, got)
	}
}

func TestRateLimitRepository_OldestAttemptEmpty(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, ok, err := repo.OldestAttempt(context.Background(), "nobody", time.Minute, time.Now())
	if err != nil {
		t.Fatalf("OldestAttempt returned error: %v", err)
	}
	if ok {
		t.Fatal("expected no attempts for unknown identifier")
	}
}
