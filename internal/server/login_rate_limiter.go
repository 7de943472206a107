package server

import (
	"sync"
	"time"
)

// loginRateLimiter blocks a key after repeated login failures inside a
// sliding window. Nil receivers allow everything.
type loginRateLimiter struct {
	mu          sync.Mutex
	entries     map[string]loginAttemptEntry
	maxFailures int
	window      time.Duration
	blockedFor  time.Duration
}

type loginAttemptEntry struct {
	failures       int
	firstFailureAt time.Time
	blockedUntil   time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	return &loginRateLimiter{
		entries:     make(map[string]loginAttemptEntry),
		maxFailures: maxFailures,
		window:      window,
		blockedFor:  blockedFor,
	}
}

func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if !entry.blockedUntil.IsZero() && now.Before(entry.blockedUntil) {
		return false
	}
	if !entry.blockedUntil.IsZero() {
		delete(l.entries, key)
	}
	return true
}

func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if entry.firstFailureAt.IsZero() || now.Sub(entry.firstFailureAt) > l.window {
		entry.failures = 0
		entry.firstFailureAt = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
	}
	l.entries[key] = entry
}

func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
