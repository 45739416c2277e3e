package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	domainintake "kiccms/internal/domain/intake"
)

func countingLoader(calls *int, header string) func(context.Context) (domainintake.Snapshot, error) {
	return func(context.Context) (domainintake.Snapshot, error) {
		*calls++
		return domainintake.Snapshot{Header: []string{header}}, nil
	}
}

func TestSnapshotCacheKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	cache := NewSnapshotCache(time.Minute, clock)
	ctx := context.Background()
	var aCalls, bCalls int

	if _, hit, _ := cache.Get(ctx, "a", countingLoader(&aCalls, "a")); hit {
		t.Fatalf("first Get(a) hit = true")
	}
	if _, hit, _ := cache.Get(ctx, "b", countingLoader(&bCalls, "b")); hit {
		t.Fatalf("first Get(b) hit = true")
	}

	cache.Invalidate("a")
	got, hit, err := cache.Get(ctx, "b", countingLoader(&bCalls, "b"))
	if err != nil || !hit || got.Header[0] != "b" {
		t.Fatalf("Get(b) = %v, hit=%v, err=%v", got.Header, hit, err)
	}
	if _, hit, _ := cache.Get(ctx, "a", countingLoader(&aCalls, "a")); hit {
		t.Fatalf("Get(a) after Invalidate hit = true")
	}
	if aCalls != 2 || bCalls != 1 {
		t.Fatalf("aCalls=%d bCalls=%d", aCalls, bCalls)
	}
}

func TestSnapshotCacheInvalidateAll(t *testing.T) {
	cache := NewSnapshotCache(time.Minute, newFakeClock())
	ctx := context.Background()
	var calls int

	_, _, _ = cache.Get(ctx, "a", countingLoader(&calls, "a"))
	_, _, _ = cache.Get(ctx, "b", countingLoader(&calls, "b"))
	cache.InvalidateAll()
	_, _, _ = cache.Get(ctx, "a", countingLoader(&calls, "a"))
	_, _, _ = cache.Get(ctx, "b", countingLoader(&calls, "b"))

	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
	if _, ok := cache.Peek("a"); !ok {
		t.Fatalf("Peek(a) ok = false")
	}
}

func TestSnapshotCacheZeroTTLAlwaysLoads(t *testing.T) {
	cache := NewSnapshotCache(0, newFakeClock())
	var calls int
	for i := 0; i < 3; i++ {
		_, _, _ = cache.Get(context.Background(), "a", countingLoader(&calls, "a"))
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestSnapshotCacheFailedLoadKeepsEntry(t *testing.T) {
	clock := newFakeClock()
	cache := NewSnapshotCache(time.Minute, clock)
	ctx := context.Background()
	var calls int

	_, _, _ = cache.Get(ctx, "a", countingLoader(&calls, "first"))
	clock.Advance(2 * time.Minute)

	_, _, err := cache.Get(ctx, "a", func(context.Context) (domainintake.Snapshot, error) {
		return domainintake.Snapshot{}, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("Get() error = nil")
	}
	kept, ok := cache.Peek("a")
	if !ok || kept.Header[0] != "first" {
		t.Fatalf("Peek() = %v, %v", kept.Header, ok)
	}
}

func TestSnapshotCacheDropsLoadRacingInvalidate(t *testing.T) {
	cache := NewSnapshotCache(time.Minute, newFakeClock())
	ctx := context.Background()

	// An append lands while the first fetch is still in flight.
	stale := func(context.Context) (domainintake.Snapshot, error) {
		cache.Invalidate("sheet")
		return domainintake.Snapshot{Header: []string{"stale"}}, nil
	}
	got, hit, err := cache.Get(ctx, "sheet", stale)
	if err != nil || hit || got.Header[0] != "stale" {
		t.Fatalf("Get() = %v, hit=%v, err=%v", got.Header, hit, err)
	}

	var calls int
	got, hit, err = cache.Get(ctx, "sheet", countingLoader(&calls, "fresh"))
	if err != nil || hit || calls != 1 || got.Header[0] != "fresh" {
		t.Fatalf("Get() after racing load = %v, hit=%v, calls=%d, err=%v", got.Header, hit, calls, err)
	}

	got, hit, _ = cache.Get(ctx, "sheet", countingLoader(&calls, "fresh"))
	if !hit || calls != 1 || got.Header[0] != "fresh" {
		t.Fatalf("third Get() = %v, hit=%v, calls=%d", got.Header, hit, calls)
	}
}
