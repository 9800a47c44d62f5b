package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBucket(capacity int64, refillEvery time.Duration, clk *fakeClock) *Bucket {
	b := NewBucket(capacity, refillEvery)
	b.now = clk.Now
	b.last = clk.Now()
	return b
}

func TestBucket_DrainsExactlyCapacity(t *testing.T) {
	clk := newFakeClock()
	b := newTestBucket(5, time.Second, clk)

	for i := int64(0); i < 5; i++ {
		res := b.TryConsume("")
		if !res.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
		if res.RemainingTokens != 4-i {
			t.Fatalf("call %d: expected %d remaining, got %d", i+1, 4-i, res.RemainingTokens)
		}
	}

	res := b.TryConsume("")
	if res.Allowed {
		t.Fatalf("expected call %d to be denied", 6)
	}
	if res.NanosUntilRefill <= 0 {
		t.Fatalf("expected positive wait hint, got %d", res.NanosUntilRefill)
	}
}

func TestBucket_RefillScenario(t *testing.T) {
	clk := newFakeClock()
	b := newTestBucket(3, time.Second, clk)

	for i := 0; i < 3; i++ {
		if res := b.TryConsume(""); !res.Allowed {
			t.Fatalf("call %d: expected allowed", i+1)
		}
	}

	res := b.TryConsume("")
	if res.Allowed {
		t.Fatalf("call 4: expected denied")
	}
	if got := time.Duration(res.NanosUntilRefill); got != time.Second {
		t.Fatalf("call 4: expected 1s until refill, got %v", got)
	}

	clk.Advance(time.Second)
	if res := b.TryConsume(""); !res.Allowed {
		t.Fatalf("call 5 after refill: expected allowed")
	}
}

func TestBucket_RefillCapsAtCapacity(t *testing.T) {
	clk := newFakeClock()
	b := newTestBucket(2, time.Second, clk)

	b.TryConsume("")
	b.TryConsume("")

	// A long idle period earns back at most the capacity.
	clk.Advance(time.Hour)
	b.TryConsume("")
	res := b.TryConsume("")
	if !res.Allowed || res.RemainingTokens != 0 {
		t.Fatalf("expected second post-idle call to win the last token, got %+v", res)
	}
	if res := b.TryConsume(""); res.Allowed {
		t.Fatalf("expected third post-idle call to be denied")
	}
}

func TestBucket_ConcurrentProbesNeverOverAdmit(t *testing.T) {
	const capacity = 8
	const extra = 12

	clk := newFakeClock()
	b := newTestBucket(capacity, time.Minute, clk)

	var allowed, denied int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < capacity+extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if b.TryConsume("").Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&denied, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if allowed != capacity {
		t.Fatalf("expected exactly %d allowed, got %d", capacity, allowed)
	}
	if denied != extra {
		t.Fatalf("expected exactly %d denied, got %d", extra, denied)
	}
}

func TestKeyed_BucketsAreIndependent(t *testing.T) {
	clk := newFakeClock()
	k := NewKeyed(1, time.Second)
	k.now = clk.Now

	if res := k.TryConsume("10.0.0.1"); !res.Allowed {
		t.Fatalf("first caller should be allowed")
	}
	if res := k.TryConsume("10.0.0.1"); res.Allowed {
		t.Fatalf("first caller should be exhausted")
	}
	if res := k.TryConsume("10.0.0.2"); !res.Allowed {
		t.Fatalf("second caller should have its own bucket")
	}
}

func TestKeyed_PrunesIdleBuckets(t *testing.T) {
	clk := newFakeClock()
	k := NewKeyed(2, time.Second)
	k.now = clk.Now

	k.TryConsume("10.0.0.1")
	k.TryConsume("10.0.0.2")

	clk.Advance(time.Hour)
	k.TryConsume("10.0.0.3")

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.buckets) != 1 {
		t.Fatalf("expected idle buckets pruned, have %d", len(k.buckets))
	}
}
