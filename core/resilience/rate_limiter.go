package resilience

import (
	"sync"
	"time"
)

// Decision is the structured outcome of a rate-limit check. A denial is an
// expected condition, reported as a value; RetryAfter tells the boundary
// layer what to put in its "try again shortly" reply.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// keyWindow is a circular buffer of accepted-request timestamps for one key.
type keyWindow struct {
	timestamps []time.Time
	head       int
	count      int
	lastSeen   time.Time
}

func (w *keyWindow) cleanup(cutoff time.Time) {
	for w.count > 0 && w.timestamps[w.head].Before(cutoff) {
		w.head = (w.head + 1) % len(w.timestamps)
		w.count--
	}
}

func (w *keyWindow) add(ts time.Time) {
	idx := (w.head + w.count) % len(w.timestamps)
	w.timestamps[idx] = ts
	w.count++
}

func (w *keyWindow) oldest() time.Time {
	return w.timestamps[w.head]
}

// RateLimiter throttles request counts per key over a rolling window.
// A limiter configured with a non-positive limit or window is a no-op that
// always allows.
type RateLimiter struct {
	maxRequests int
	window      time.Duration

	mu   sync.Mutex
	keys map[string]*keyWindow

	now func() time.Time
}

// RateLimiterConfig configures the limiter.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
}

// NewRateLimiter creates a keyed sliding-window limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		keys:        make(map[string]*keyWindow),
		now:         time.Now,
	}
}

func (rl *RateLimiter) disabled() bool {
	return rl.maxRequests <= 0 || rl.window <= 0
}

// Check admits or denies one request for key. Admission appends the current
// timestamp; denial reports the time until the oldest request leaves the
// window, never less than one second.
func (rl *RateLimiter) Check(key string) Decision {
	if rl.disabled() {
		return Decision{Allowed: true}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.keys[key]
	if w == nil {
		w = &keyWindow{timestamps: make([]time.Time, rl.maxRequests)}
		rl.keys[key] = w
	}
	w.lastSeen = now
	w.cleanup(now.Add(-rl.window))

	if w.count >= rl.maxRequests {
		retry := w.oldest().Add(rl.window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{
			Allowed:    false,
			Limit:      rl.maxRequests,
			Remaining:  0,
			RetryAfter: retry,
		}
	}

	w.add(now)
	reset := w.oldest().Add(rl.window).Sub(now)
	return Decision{
		Allowed:    true,
		Limit:      rl.maxRequests,
		Remaining:  rl.maxRequests - w.count,
		RetryAfter: reset,
	}
}

// Sweep drops keys idle for longer than the window and returns how many
// were removed. Intended for a periodic maintenance goroutine.
func (rl *RateLimiter) Sweep() int {
	if rl.disabled() {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for key, w := range rl.keys {
		if w.lastSeen.Before(cutoff) {
			delete(rl.keys, key)
			removed++
		}
	}
	return removed
}

// KeyCount reports how many keys currently hold window state.
func (rl *RateLimiter) KeyCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.keys)
}

// setClock overrides the wall clock for simulated-time tests.
func (rl *RateLimiter) setClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}
