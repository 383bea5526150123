package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := c.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("expected v, got %q err=%v", v, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := c.Get(ctx, "k"); !stderrors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestMemoryCacheSetNXAndCompareAndDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	ok, _ := c.SetNX(ctx, "lock", "a", time.Minute)
	if !ok {
		t.Fatal("first SetNX should win")
	}
	ok, _ = c.SetNX(ctx, "lock", "b", time.Minute)
	if ok {
		t.Fatal("second SetNX should lose")
	}
	if deleted, _ := c.CompareAndDelete(ctx, "lock", "b"); deleted {
		t.Fatal("foreign owner must not delete")
	}
	if deleted, _ := c.CompareAndDelete(ctx, "lock", "a"); !deleted {
		t.Fatal("owner should delete")
	}
}

func TestLockerSerializes(t *testing.T) {
	l := NewLocker(NewMemoryCache())
	l.retry.MaxAttempts = 200
	l.retry.InitialDelay = time.Millisecond
	l.retry.MaxDelay = 2 * time.Millisecond

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "occurrence")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d holders", maxSeen)
	}
}

func TestLockerGivesUp(t *testing.T) {
	c := NewMemoryCache()
	_, _ = c.SetNX(context.Background(), "busy", "someone", time.Minute)
	l := NewLocker(c)
	l.retry.MaxAttempts = 2
	l.retry.InitialDelay = time.Millisecond

	if _, err := l.Acquire(context.Background(), "busy"); !stderrors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
}
