package ratelimit

import (
	"sync"
	"time"
)

// idleFactor controls pruning: a per-key bucket untouched for
// idleFactor*capacity refill intervals is fully replenished and can be
// dropped without changing observable behavior.
const idleFactor = 2

// Keyed maintains one bucket per caller key, created lazily. It covers the
// per-IP limiter variant; the shared-bucket default is a plain *Bucket.
type Keyed struct {
	mu          sync.Mutex
	buckets     map[string]*keyedBucket
	capacity    int64
	refillEvery time.Duration

	now func() time.Time
}

type keyedBucket struct {
	bucket   *Bucket
	lastSeen time.Time
}

func NewKeyed(capacity int64, refillEvery time.Duration) *Keyed {
	return &Keyed{
		buckets:     make(map[string]*keyedBucket),
		capacity:    capacity,
		refillEvery: refillEvery,
		now:         time.Now,
	}
}

// TryConsume probes the bucket for key, creating it full on first sight.
func (k *Keyed) TryConsume(key string) ConsumptionResult {
	k.mu.Lock()
	now := k.now()
	entry, ok := k.buckets[key]
	if !ok {
		entry = &keyedBucket{bucket: NewBucket(k.capacity, k.refillEvery)}
		entry.bucket.now = k.now
		entry.bucket.last = now
		k.buckets[key] = entry
	}
	entry.lastSeen = now
	k.prune(now)
	k.mu.Unlock()

	return entry.bucket.TryConsume(key)
}

// prune drops buckets idle long enough to be full again. Caller holds k.mu.
func (k *Keyed) prune(now time.Time) {
	idle := time.Duration(idleFactor*k.capacity) * k.refillEvery
	for key, entry := range k.buckets {
		if now.Sub(entry.lastSeen) > idle {
			delete(k.buckets, key)
		}
	}
}
