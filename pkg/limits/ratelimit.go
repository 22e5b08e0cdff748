package limits

import (
	"sync"
	"time"
)

// Bucket is a token bucket for a single caller, such as one live session.
type Bucket struct {
	rate  float64
	burst float64

	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
	now      func() time.Time
}

// NewBucket creates a full bucket refilled at rate tokens per second.
func NewBucket(rate float64, burst int) *Bucket {
	return newBucket(rate, burst, time.Now)
}

func newBucket(rate float64, burst int, now func() time.Time) *Bucket {
	if burst < 1 {
		burst = 1
	}
	return &Bucket{
		rate:     rate,
		burst:    float64(burst),
		tokens:   float64(burst),
		lastFill: now(),
		now:      now,
	}
}

// Allow takes one token if available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.tokens += now.Sub(b.lastFill).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
