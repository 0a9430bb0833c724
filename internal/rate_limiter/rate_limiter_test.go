package rate_limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3, 5*time.Minute, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, rl.IsAllowed("10.0.0.1"), "attempt %d", i+1)
	}
	assert.False(t, rl.IsAllowed("10.0.0.1"))
	assert.Equal(t, 0, rl.GetRemainingRequests("10.0.0.1"))

	assert.True(t, rl.IsAllowed("10.0.0.2"))
	assert.Equal(t, 2, rl.GetRemainingRequests("10.0.0.2"))

	now = now.Add(5*time.Minute + time.Second)
	assert.Equal(t, 3, rl.GetRemainingRequests("10.0.0.1"))
	assert.True(t, rl.IsAllowed("10.0.0.1"))
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	rl := newRateLimiter(3, time.Minute, func() time.Time { return now })

	rl.IsAllowed("a")
	now = now.Add(2 * time.Minute)
	rl.IsAllowed("b")
	rl.cleanup()

	assert.NotContains(t, rl.requests, "a")
	assert.Contains(t, rl.requests, "b")
}
