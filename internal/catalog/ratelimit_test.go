package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter(t *testing.T) {
	t.Run("tryAcquire", func(t *testing.T) {
		rl := newRateLimiter(5)
		defer rl.Close()

		for i := 0; i < 5; i++ {
			assert.True(t, rl.tryAcquire(), "expected tryAcquire to succeed for attempt %d", i+1)
		}
		assert.False(t, rl.tryAcquire(), "expected tryAcquire to fail after tokens exhausted")
	})

	t.Run("wait consumes available tokens without blocking", func(t *testing.T) {
		rl := newRateLimiter(3)
		defer rl.Close()
		ctx := context.Background()

		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, rl.wait(ctx))
		}
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := newRateLimiter(1)
		defer rl.Close()

		require.NoError(t, rl.wait(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error)
		go func() {
			done <- rl.wait(ctx)
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		err := <-done
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limiter canceled")
	})

	t.Run("default rate limit", func(t *testing.T) {
		rl := newRateLimiter(0)
		defer rl.Close()

		for i := 0; i < 30; i++ {
			require.True(t, rl.tryAcquire(), "expected default capacity to cover %d queries", i+1)
		}
		assert.False(t, rl.tryAcquire())
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl := newRateLimiter(100)
		defer rl.Close()

		var mu sync.Mutex
		acquired := 0
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if rl.tryAcquire() {
						mu.Lock()
						acquired++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 100, acquired)
	})
}
