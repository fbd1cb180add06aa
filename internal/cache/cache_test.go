package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, size int) (*LRU[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](size, time.Minute, zap.NewNop())
	c.now = clock.Now
	return c, clock
}

func TestLRU_MissIsNotAnError(t *testing.T) {
	c, _ := newTestCache(t, 10)
	v, ok := c.Get("google")
	require.False(t, ok)
	require.Empty(t, v)
}

func TestLRU_PutGet(t *testing.T) {
	c, _ := newTestCache(t, 10)
	c.Put("google", "payload", 0)

	v, ok := c.Get("google")
	require.True(t, ok)
	require.Equal(t, "payload", v)
}

func TestLRU_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(t, 10)
	c.Put("short", "a", 10*time.Second)
	c.Put("default", "b", 0)

	clock.Advance(9 * time.Second)
	_, ok := c.Get("short")
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("short")
	require.False(t, ok, "entry must expire exactly at its ttl")
	require.Equal(t, 1, c.Len(), "expired entry is dropped on read")

	_, ok = c.Get("default")
	require.True(t, ok)
	clock.Advance(time.Minute)
	_, ok = c.Get("default")
	require.False(t, ok)
}

func TestLRU_PutRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache(t, 10)
	c.Put("k", "old", 10*time.Second)
	clock.Advance(8 * time.Second)
	c.Put("k", "new", 10*time.Second)
	clock.Advance(8 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", v)
}

func TestLRU_InvalidateAndClear(t *testing.T) {
	c, _ := newTestCache(t, 10)
	c.Put("a", "1", 0)
	c.Put("b", "2", 0)

	c.Invalidate("a")
	_, ok := c.Get("a")
	require.False(t, ok)
	_, ok = c.Get("b")
	require.True(t, ok)

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Put("a", "1", 0)
	c.Put("b", "2", 0)
	_, _ = c.Get("a")
	c.Put("c", "3", 0)

	_, ok := c.Get("b")
	require.False(t, ok)
	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, 64)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("org-%d", i%4)
			for j := 0; j < 100; j++ {
				c.Put(key, key, 0)
				v, ok := c.Get(key)
				assert.True(t, ok)
				assert.Equal(t, key, v)
			}
		}(i)
	}
	wg.Wait()
}
