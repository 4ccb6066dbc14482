// ABOUTME: Tests for the event-id dedupe cache.
// ABOUTME: Validates atomic seen-and-mark, TTL expiry, eviction, and concurrency safety.

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeen_FirstTime(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.Seen("Ev001"))
}

func TestSeen_SecondTime(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.Seen("Ev001"))
	assert.True(t, cache.Seen("Ev001"))
}

func TestSeen_Expired(t *testing.T) {
	cache := New(10*time.Minute, 100)
	defer cache.Close()

	current := time.Now()
	cache.now = func() time.Time { return current }

	assert.False(t, cache.Seen("Ev001"))

	// Jump past the TTL: the key reads as new again.
	current = current.Add(11 * time.Minute)
	assert.False(t, cache.Seen("Ev001"))
	assert.True(t, cache.Seen("Ev001"))
}

func TestSeen_EvictsOldest(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	cache.Seen("a")
	cache.Seen("b")
	cache.Seen("c")
	cache.Seen("d") // evicts "a"

	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.Seen("a"))
	assert.True(t, cache.Seen("d"))
}

func TestSweep_RemovesExpired(t *testing.T) {
	cache := New(10*time.Minute, 100)
	defer cache.Close()

	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Seen("old")
	current = current.Add(11 * time.Minute)
	cache.Seen("fresh")

	cache.sweep()

	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Seen("fresh"))
}

func TestSeen_Concurrent(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	const workers = 32
	var firsts int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	// All workers race on the same key: exactly one may win.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cache.Seen("contended") {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), firsts)
}

func TestSeen_ConcurrentDistinctKeys(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("Ev%03d", n)
			assert.False(t, cache.Seen(key))
			assert.True(t, cache.Seen(key))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestClose_Twice(t *testing.T) {
	cache := New(time.Minute, 10)
	cache.Close()
	cache.Close() // must not panic
}
