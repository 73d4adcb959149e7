package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// Class groups routes that share one budget per client.
type Class string

const (
	ClassOrders  Class = "orders"
	ClassSearch  Class = "search"
	ClassGeneral Class = "general"
)

type Policy struct {
	Limit  int
	Window time.Duration
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type windowKey struct {
	class Class
	key   string
}

type window struct {
	start time.Time
	count int
}

// Limiter counts requests per (class, key) over fixed windows. State lives in
// process memory only, so each instance enforces its own budget.
type Limiter struct {
	mu       sync.Mutex
	policies map[Class]Policy
	windows  map[windowKey]*window
	now      func() time.Time
}

func New(policies map[Class]Policy) *Limiter {
	p := make(map[Class]Policy, len(policies))
	for class, policy := range policies {
		p[class] = policy
	}
	return &Limiter{
		policies: p,
		windows:  make(map[windowKey]*window),
		now:      time.Now,
	}
}

func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Policy(class Class) (Policy, bool) {
	p, ok := l.policies[class]
	return p, ok
}

// Allow records one request. Classes without a policy are unlimited.
func (l *Limiter) Allow(class Class, key string) (Decision, error) {
	policy, ok := l.policies[class]
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := l.now()
	k := windowKey{class: class, key: key}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[k]
	if !exists || now.Sub(w.start) >= policy.Window {
		w = &window{start: now}
		l.windows[k] = w
	}

	if w.count >= policy.Limit {
		return Decision{
			Allowed:    false,
			RetryAfter: w.start.Add(policy.Window).Sub(now),
		}, ErrRateLimited
	}

	w.count++
	return Decision{Allowed: true, Remaining: policy.Limit - w.count}, nil
}

// Sweep drops windows that have already elapsed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.policies[k.class].Window {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
