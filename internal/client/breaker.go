package client

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrCircuitOpen is returned without contacting the server while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// Breaker stops calling the draft server after repeated failures and lets
// a single probe through once the cool-down has passed.
type Breaker struct {
	mu sync.Mutex

	threshold int
	coolDown  time.Duration

	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	if coolDown <= 0 {
		coolDown = 15 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.now().Sub(b.openedAt) < b.coolDown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.probing = false
	}
	if b.state == BreakerHalfOpen {
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.probing = false
	b.openedAt = time.Time{}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	case BreakerHalfOpen, BreakerOpen:
		b.open()
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) open() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.probing = false
}
