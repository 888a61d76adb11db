package application

import (
	"sync"
	"time"
)

// ActionKind names a rate limited user action.
type ActionKind string

const (
	ActionSignup  ActionKind = "signup"
	ActionSignout ActionKind = "signout"
)

// RateLimit allows MaxAttempts within any rolling Window.
type RateLimit struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultRateLimits returns three attempts per five minutes for each action.
func DefaultRateLimits() map[ActionKind]RateLimit {
	return map[ActionKind]RateLimit{
		ActionSignup:  {MaxAttempts: 3, Window: 5 * time.Minute},
		ActionSignout: {MaxAttempts: 3, Window: 5 * time.Minute},
	}
}

// Limiter is the sliding-window attempt counter of one caller session. The
// session owns it; nothing is persisted. Actions without a configured limit
// are always allowed.
type Limiter struct {
	mu       sync.Mutex
	limits   map[ActionKind]RateLimit
	now      func() time.Time
	attempts map[ActionKind][]time.Time
}

// NewLimiter constructs a Limiter. A nil now uses time.Now.
func NewLimiter(limits map[ActionKind]RateLimit, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	copied := make(map[ActionKind]RateLimit, len(limits))
	for kind, limit := range limits {
		copied[kind] = limit
	}
	return &Limiter{
		limits:   copied,
		now:      now,
		attempts: make(map[ActionKind][]time.Time),
	}
}

// Allow records an attempt of kind, or rejects it with a *RateLimitError when
// the window is full. Rejected attempts are not recorded.
func (l *Limiter) Allow(kind ActionKind) error {
	if l == nil {
		return nil
	}
	limit, ok := l.limits[kind]
	if !ok || limit.MaxAttempts <= 0 || limit.Window <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(kind, now, limit.Window)
	if len(recent) >= limit.MaxAttempts {
		return &RateLimitError{Action: kind, Cooldown: cooldown(recent[0], now, limit.Window)}
	}
	l.attempts[kind] = append(recent, now)
	return nil
}

// Cooldown returns how long until the next attempt of kind would be
// accepted; zero when an attempt is allowed now.
func (l *Limiter) Cooldown(kind ActionKind) time.Duration {
	if l == nil {
		return 0
	}
	limit, ok := l.limits[kind]
	if !ok || limit.MaxAttempts <= 0 || limit.Window <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(kind, now, limit.Window)
	if len(recent) < limit.MaxAttempts {
		return 0
	}
	return cooldown(recent[0], now, limit.Window)
}

// pruneLocked drops attempts that left the window and returns the rest,
// oldest first.
func (l *Limiter) pruneLocked(kind ActionKind, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	recent := l.attempts[kind][:0]
	for _, at := range l.attempts[kind] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	l.attempts[kind] = recent
	return recent
}

// cooldown is measured from the oldest attempt still inside the window and
// rounded up to whole seconds.
func cooldown(oldest, now time.Time, window time.Duration) time.Duration {
	remaining := oldest.Add(window).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return ((remaining + time.Second - 1) / time.Second) * time.Second
}

// LimiterRegistry hands out one Limiter per session key. Sessions idle for
// longer than the TTL are dropped, which resets their counters.
type LimiterRegistry struct {
	mu         sync.Mutex
	limits     map[ActionKind]RateLimit
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *Limiter
	lastSeen time.Time
}

// NewLimiterRegistry constructs a registry. Non-positive ttl and maxEntries
// default to one hour and 10000 sessions.
func NewLimiterRegistry(limits map[ActionKind]RateLimit, ttl time.Duration, maxEntries int, now func() time.Time) *LimiterRegistry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &LimiterRegistry{
		limits:     limits,
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*limiterEntry),
	}
}

// Get returns the limiter of session, creating it on first use.
func (r *LimiterRegistry) Get(session string) *Limiter {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry, ok := r.entries[session]; ok && now.Sub(entry.lastSeen) <= r.ttl {
		entry.lastSeen = now
		return entry.limiter
	}

	r.cleanupLocked(now)
	if len(r.entries) >= r.maxEntries {
		r.evictOldestLocked()
	}
	entry := &limiterEntry{limiter: NewLimiter(r.limits, r.now), lastSeen: now}
	r.entries[session] = entry
	return entry.limiter
}

// Len returns the number of tracked sessions.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *LimiterRegistry) cleanupLocked(now time.Time) {
	for key, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.entries, key)
		}
	}
}

func (r *LimiterRegistry) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range r.entries {
		if oldestKey == "" || entry.lastSeen.Before(oldest) {
			oldestKey, oldest = key, entry.lastSeen
		}
	}
	delete(r.entries, oldestKey)
}
