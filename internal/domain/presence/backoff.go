package presence

import (
	"math/rand"
	"time"
)

// Backoff describes the reconnect schedule of a Session.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps a single delay.
	Max        time.Duration
	Multiplier float64
	// Jitter in [0,1]; 0.2 means ±20%.
	Jitter float64
	// MaxAttempts is the number of consecutive failed attempts after which
	// the session gives up. A connection dropped before StableAfter counts
	// as a failed attempt.
	MaxAttempts int
	// StableAfter is how long a connection must stay up to reset the count.
	StableAfter time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:        500 * time.Millisecond,
		Max:         30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
		MaxAttempts: 5,
		StableAfter: 10 * time.Second,
	}
}

func (b Backoff) normalize() Backoff {
	def := DefaultBackoff()
	if b.Base <= 0 {
		b.Base = def.Base
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Max < b.Base {
		b.Max = b.Base
	}
	if b.Multiplier < 1 {
		b.Multiplier = def.Multiplier
	}
	if b.Jitter < 0 || b.Jitter > 1 {
		b.Jitter = def.Jitter
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = def.MaxAttempts
	}
	if b.StableAfter <= 0 {
		b.StableAfter = def.StableAfter
	}
	return b
}

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Base)
	for i := 1; i < attempt; i++ {
		d *= b.Multiplier
		if d >= float64(b.Max) {
			d = float64(b.Max)
			break
		}
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	if d > float64(b.Max) {
		d = float64(b.Max)
	}
	return time.Duration(d)
}
