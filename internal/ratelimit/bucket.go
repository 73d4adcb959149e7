package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Buckets is the general per-address throttle: a token bucket that refills
// requests tokens per window, bursting up to requests.
type Buckets struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
	now      func() time.Time
}

func NewBuckets(requests int, window time.Duration) *Buckets {
	limit := rate.Inf
	if requests > 0 && window > 0 {
		limit = rate.Every(window / time.Duration(requests))
	}
	idle := 3 * window
	if idle < 3*time.Minute {
		idle = 3 * time.Minute
	}
	return &Buckets{
		limit:    limit,
		burst:    requests,
		idle:     idle,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (b *Buckets) WithClock(now func() time.Time) *Buckets {
	b.now = now
	return b
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (b *Buckets) getVisitor(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, exists := b.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (b *Buckets) Allow(key string) (Decision, error) {
	now := b.now()
	lim := b.getVisitor(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false}, ErrRateLimited
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, ErrRateLimited
	}

	return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
}

// Sweep removes visitors idle for longer than the idle horizon.
func (b *Buckets) Sweep() int {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, v := range b.visitors {
		if now.Sub(v.lastSeen) > b.idle {
			delete(b.visitors, key)
			removed++
		}
	}
	return removed
}

func (b *Buckets) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep()
		}
	}
}
