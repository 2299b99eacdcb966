package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes a token bucket: one token every Every, up to Burst.
type Policy struct {
	Every time.Duration
	Burst int
}

var DefaultPolicies = map[string]Policy{
	// 10 messages, then one every 3 seconds
	"send_message": {Every: 3 * time.Second, Burst: 10},
	"update_price": {Every: 5 * time.Second, Burst: 5},
	"typing":       {Every: time.Second, Burst: 30},
	"join_deal":    {Every: time.Second, Burst: 20},
}

var fallbackPolicy = Policy{Every: time.Second, Burst: 20}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one limiter per user and action.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	policies map[string]Policy
	idle     time.Duration
}

func NewRateLimiter(policies map[string]Policy) *RateLimiter {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		policies: policies,
		idle:     time.Hour,
	}
}

// Allow consumes a token for key/action if one is available, otherwise it
// reports how long the caller should wait.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	now := time.Now()
	lim := rl.limiterFor(key, action, now)

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) limiterFor(key, action string, now time.Time) *rate.Limiter {
	id := key + ":" + action

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[id]
	if !ok {
		policy, found := rl.policies[action]
		if !found {
			policy = fallbackPolicy
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(policy.Every), policy.Burst)}
		rl.buckets[id] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Cleanup removes buckets that have not been used for the idle period.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idle {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine runs Cleanup periodically until done is closed.
func (rl *RateLimiter) StartCleanupRoutine(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-done:
				return
			}
		}
	}()
}
