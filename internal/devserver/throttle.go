package devserver

import (
	"sync"
	"time"
)

// loginThrottle is a fixed window limiter for login attempts, keyed by the
// client address.
type loginThrottle struct {
	mu          sync.Mutex
	windows     map[string]*window
	windowSize  time.Duration
	maxAttempts int
	now         func() time.Time
}

type window struct {
	count int
	start time.Time
}

func newLoginThrottle(maxAttempts int, windowSize time.Duration) *loginThrottle {
	if windowSize <= 0 {
		windowSize = time.Minute
	}
	return &loginThrottle{
		windows:     make(map[string]*window),
		windowSize:  windowSize,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// allow records an attempt from key and reports whether it may proceed.
// A limiter with no maximum allows everything.
func (lt *loginThrottle) allow(key string) bool {
	if lt.maxAttempts <= 0 {
		return true
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	start := lt.now().Truncate(lt.windowSize)
	w, ok := lt.windows[key]
	if !ok || !w.start.Equal(start) {
		lt.sweep(start)
		lt.windows[key] = &window{count: 1, start: start}
		return true
	}
	if w.count >= lt.maxAttempts {
		return false
	}
	w.count++
	return true
}

// retryAfter returns when the current window ends.
func (lt *loginThrottle) retryAfter() time.Duration {
	now := lt.now()
	return now.Truncate(lt.windowSize).Add(lt.windowSize).Sub(now)
}

// sweep drops windows older than start. Callers hold mu.
func (lt *loginThrottle) sweep(start time.Time) {
	for key, w := range lt.windows {
		if w.start.Before(start) {
			delete(lt.windows, key)
		}
	}
}
