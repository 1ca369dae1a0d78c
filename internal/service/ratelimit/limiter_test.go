package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	l := New(2, 2)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst not honoured")
	}
	if l.Allow("a") {
		t.Fatalf("third request within burst window allowed")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share buckets")
	}
	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("token not refilled after 500ms at 2/s")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "k"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := l.Wait(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}
