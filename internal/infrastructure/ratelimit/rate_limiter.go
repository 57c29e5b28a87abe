package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"campusmart/internal/infrastructure/metrics"
)

const (
	ActionSendMessage  = "send_message"
	ActionOpenChat     = "open_conversation"
	ActionRespondOffer = "respond_offer"
	ActionToggleLike   = "toggle_like"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per user and action.
type RateLimiter struct {
	perMinute int
	burst     int
	buckets   map[string]*bucket
	mutex     sync.Mutex
}

// NewRateLimiter allows perMinute actions per user and action, with bursts up to burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		perMinute: perMinute,
		burst:     burst,
		buckets:   make(map[string]*bucket),
	}
}

// Allow consumes a token for the action and reports how long to wait when none is left.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	if rl == nil || rl.perMinute <= 0 {
		return true, 0
	}

	key := userID + ":" + action
	now := time.Now()

	rl.mutex.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limitFor(action), rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		metrics.RateLimitHits.WithLabelValues(action).Inc()
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) limitFor(action string) rate.Limit {
	perMinute := rl.perMinute
	switch action {
	case ActionOpenChat:
		perMinute = max(1, perMinute/4)
	case ActionToggleLike:
		perMinute *= 2
	}
	return rate.Limit(float64(perMinute) / 60)
}

// Cleanup removes buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets until stop is closed.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
