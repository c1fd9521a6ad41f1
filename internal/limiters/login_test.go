package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type memoryStore struct {
	counts map[string]int64
	fail   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counts: map[string]int64{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (int64, error) {
	if s.fail {
		return 0, errors.New("store down")
	}
	return s.counts[key], nil
}

func (s *memoryStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.fail {
		return 0, errors.New("store down")
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *memoryStore) Del(_ context.Context, key string) error {
	if s.fail {
		return errors.New("store down")
	}
	delete(s.counts, key)
	return nil
}

func TestLimiterBlocksAfterMaxFailures(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLoginLimiter(store, 3, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "a@b.com") {
			t.Fatalf("attempt %d blocked too early", i)
		}
		limiter.RecordFailure(ctx, "a@b.com")
	}

	if limiter.Allow(ctx, "a@b.com") {
		t.Fatal("expected block after max failures")
	}
	if !limiter.Allow(ctx, "other@b.com") {
		t.Fatal("unrelated email must not be blocked")
	}
}

func TestLimiterResetClearsCounter(t *testing.T) {
	store := newMemoryStore()
	limiter := NewLoginLimiter(store, 1, time.Minute, zap.NewNop())
	ctx := context.Background()

	limiter.RecordFailure(ctx, "a@b.com")
	if limiter.Allow(ctx, "a@b.com") {
		t.Fatal("expected block")
	}

	limiter.Reset(ctx, "a@b.com")
	if !limiter.Allow(ctx, "a@b.com") {
		t.Fatal("expected allow after reset")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	store := newMemoryStore()
	store.fail = true
	limiter := NewLoginLimiter(store, 1, time.Minute, zap.NewNop())

	if !limiter.Allow(context.Background(), "a@b.com") {
		t.Fatal("store outage must not block logins")
	}
}

func TestNilStoreDisablesLimiting(t *testing.T) {
	limiter := NewLoginLimiter(nil, 1, time.Minute, zap.NewNop())
	ctx := context.Background()

	limiter.RecordFailure(ctx, "a@b.com")
	if !limiter.Allow(ctx, "a@b.com") {
		t.Fatal("nil store must always allow")
	}
}
