package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_Expiry(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	c.Set(ctx, "fee", 42, time.Minute)

	if v, ok := c.Get(ctx, "fee"); !ok || v != 42 {
		t.Fatalf("expected 42, got %d (found=%v)", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(ctx, "fee"); ok {
		t.Error("expected entry to be expired")
	}

	c.sweep()
	if c.Len() != 0 {
		t.Errorf("expected sweep to remove expired entry, len=%d", c.Len())
	}
}

func TestCache_GetOrLoadDeduplicates(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.GetOrLoad(context.Background(), "k", time.Minute, load); err != nil || v != 7 {
				t.Errorf("expected 7, got %d (err=%v)", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one load, got %d", calls.Load())
	}
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("expected failed load to leave the cache empty")
	}
}
