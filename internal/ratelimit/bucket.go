// Package ratelimit implements the token-bucket limiter guarding the
// refresh-token endpoint.
package ratelimit

import (
	"sync"
	"time"
)

// ConsumptionResult reports the outcome of a single TryConsume probe.
type ConsumptionResult struct {
	Allowed bool
	// RemainingTokens is the post-debit token count when Allowed.
	RemainingTokens int64
	// NanosUntilRefill is the wait until at least one token becomes
	// available; set only when the probe is denied.
	NanosUntilRefill int64
}

// Limiter is the probe surface the refresh handler consumes. Keyed
// implementations derive a bucket from the key; shared ones ignore it.
type Limiter interface {
	TryConsume(key string) ConsumptionResult
}

// Bucket is a token bucket with a fixed capacity and steady refill rate.
// The refill-then-debit sequence runs as one critical section, so two racing
// probes can never both win the last token.
type Bucket struct {
	mu          sync.Mutex
	capacity    int64
	refillEvery time.Duration
	available   int64
	last        time.Time

	now func() time.Time
}

// NewBucket returns a full bucket that regains one token per refillEvery.
func NewBucket(capacity int64, refillEvery time.Duration) *Bucket {
	if capacity < 1 {
		capacity = 1
	}
	if refillEvery <= 0 {
		refillEvery = time.Second
	}
	b := &Bucket{
		capacity:    capacity,
		refillEvery: refillEvery,
		available:   capacity,
		now:         time.Now,
	}
	b.last = b.now()
	return b
}

// TryConsume refills proportionally to elapsed time, capped at capacity, then
// attempts to debit one token.
func (b *Bucket) TryConsume(string) ConsumptionResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.refill(now)

	if b.available > 0 {
		b.available--
		return ConsumptionResult{Allowed: true, RemainingTokens: b.available}
	}

	wait := b.refillEvery - now.Sub(b.last)
	if wait < 0 {
		wait = 0
	}
	return ConsumptionResult{NanosUntilRefill: int64(wait)}
}

// refill credits whole tokens accrued since the last refill. When the bucket
// is full the accrual clock resets so idle time cannot bank extra tokens.
func (b *Bucket) refill(now time.Time) {
	elapsed := now.Sub(b.last)
	if elapsed < b.refillEvery {
		return
	}

	earned := int64(elapsed / b.refillEvery)
	b.available += earned
	b.last = b.last.Add(time.Duration(earned) * b.refillEvery)
	if b.available >= b.capacity {
		b.available = b.capacity
		b.last = now
	}
}
