package realtime

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottlerCoalescesBurst(t *testing.T) {
	clock := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	throttler := NewThrottler(5 * time.Second)
	throttler.now = func() time.Time { return clock }

	allowed := 0
	for i := 0; i < 10; i++ {
		if throttler.Allow(false) {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestThrottlerReopensAfterInterval(t *testing.T) {
	clock := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	throttler := NewThrottler(5 * time.Second)
	throttler.now = func() time.Time { return clock }

	assert.True(t, throttler.Allow(false))
	assert.False(t, throttler.Allow(false))

	clock = clock.Add(4 * time.Second)
	assert.False(t, throttler.Allow(false))

	clock = clock.Add(time.Second)
	assert.True(t, throttler.Allow(false))
	assert.False(t, throttler.Allow(false))
}

func TestThrottlerForceBypasses(t *testing.T) {
	clock := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	throttler := NewThrottler(5 * time.Second)
	throttler.now = func() time.Time { return clock }

	assert.True(t, throttler.Allow(false))
	assert.True(t, throttler.Allow(true))

	// A forced emission still claims the slot.
	assert.False(t, throttler.Allow(false))
}

func TestThrottlerSingleWinnerUnderContention(t *testing.T) {
	clock := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	throttler := NewThrottler(5 * time.Second)
	throttler.now = func() time.Time { return clock }

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if throttler.Allow(false) {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), allowed)
}
