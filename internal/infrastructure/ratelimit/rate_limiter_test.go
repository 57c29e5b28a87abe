package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	for i := 0; i < 2; i++ {
		ok, wait := rl.Allow("alice", ActionSendMessage)
		require.True(t, ok)
		assert.Zero(t, wait)
	}

	ok, wait := rl.Allow("alice", ActionSendMessage)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Second)
}

func TestBucketsArePerUserAndAction(t *testing.T) {
	rl := NewRateLimiter(60, 1)

	ok, _ := rl.Allow("alice", ActionSendMessage)
	require.True(t, ok)
	ok, _ = rl.Allow("alice", ActionSendMessage)
	require.False(t, ok)

	ok, _ = rl.Allow("bob", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("alice", ActionToggleLike)
	assert.True(t, ok)
}

func TestDeniedAttemptDoesNotExtendTheWait(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	rl.Allow("alice", ActionSendMessage)

	_, first := rl.Allow("alice", ActionSendMessage)
	_, second := rl.Allow("alice", ActionSendMessage)
	assert.LessOrEqual(t, second, first)
}

func TestActionLimits(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	assert.Equal(t, 1.0, float64(rl.limitFor(ActionSendMessage)))
	assert.Equal(t, 0.25, float64(rl.limitFor(ActionOpenChat)))
	assert.Equal(t, 2.0, float64(rl.limitFor(ActionToggleLike)))

	slow := NewRateLimiter(2, 1)
	assert.InDelta(t, 1.0/60, float64(slow.limitFor(ActionOpenChat)), 1e-9)
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	var nilLimiter *RateLimiter
	ok, _ := nilLimiter.Allow("alice", ActionSendMessage)
	assert.True(t, ok)

	off := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		ok, _ := off.Allow("alice", ActionSendMessage)
		require.True(t, ok)
	}
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	rl.Allow("alice", ActionSendMessage)
	rl.Allow("bob", ActionSendMessage)

	rl.Cleanup(time.Hour)
	assert.Len(t, rl.buckets, 2)

	time.Sleep(5 * time.Millisecond)
	rl.Cleanup(time.Millisecond)
	assert.Empty(t, rl.buckets)

	ok, _ := rl.Allow("alice", ActionSendMessage)
	assert.True(t, ok)
}
