package middleware

import (
	"sync"
	"time"
)

// RateLimiter is a fixed-window, in-memory limiter keyed by captain.
type RateLimiter struct {
	userLimits map[int64]*userLimit
	mu         sync.Mutex

	userMaxRequests int
	window          time.Duration
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type userLimit struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter starts a background cleanup loop; call Stop to end it.
func NewRateLimiter(userMaxRequests int, window time.Duration) *RateLimiter {
	rl := newRateLimiter(userMaxRequests, window, time.Now)
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

func newRateLimiter(userMaxRequests int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		userLimits:      make(map[int64]*userLimit),
		userMaxRequests: userMaxRequests,
		window:          window,
		now:             now,
		stop:            make(chan struct{}),
	}
}

// CheckUserLimit counts one request and reports whether it is allowed.
func (rl *RateLimiter) CheckUserLimit(userID int64) bool {
	if rl.userMaxRequests <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	limit, exists := rl.userLimits[userID]
	if !exists || now.After(limit.resetTime) {
		rl.userLimits[userID] = &userLimit{
			requests:  1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if limit.requests >= rl.userMaxRequests {
		return false
	}

	limit.requests++
	return true
}

// GetUserRemaining returns remaining requests for user
func (rl *RateLimiter) GetUserRemaining(userID int64) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.userLimits[userID]
	if !exists || rl.now().After(limit.resetTime) {
		return rl.userMaxRequests
	}

	remaining := rl.userMaxRequests - limit.requests
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, limit := range rl.userLimits {
		if now.After(limit.resetTime) {
			delete(rl.userLimits, userID)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.userLimits = make(map[int64]*userLimit)
}
