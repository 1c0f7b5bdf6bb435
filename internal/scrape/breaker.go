package scrape

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"imagetrans/internal/logger"
)

// BreakerState represents the circuit breaker state for one upstream host.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

// Breaker implements the circuit breaker pattern for upstream hosts the
// scrapers talk to. A host that keeps failing is cut off until the reset
// timeout elapses, then probed with a single half-open request.
type Breaker struct {
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	failures    map[string]int
	lastFailure map[string]time.Time
	state       map[string]BreakerState
}

// NewBreaker creates a circuit breaker tripping after maxFailures
// consecutive failures per host.
func NewBreaker(maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		failures:     make(map[string]int),
		lastFailure:  make(map[string]time.Time),
		state:        make(map[string]BreakerState),
	}
}

// Do runs fn under circuit breaker protection for host.
func (b *Breaker) Do(host string, fn func() error) error {
	if !b.allow(host) {
		return fmt.Errorf("circuit breaker open for host %s", host)
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure(host)
	} else {
		b.recordSuccess(host)
	}
	return err
}

// allow reports whether a request to host may proceed, transitioning an
// expired open circuit to half-open.
func (b *Breaker) allow(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state[host] {
	case BreakerOpen:
		if time.Since(b.lastFailure[host]) > b.resetTimeout {
			b.state[host] = BreakerHalfOpen
			logger.Get().Info("circuit breaker half-open", zap.String("host", host))
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Breaker) recordSuccess(host string) {
	delete(b.failures, host)
	delete(b.lastFailure, host)

	if b.state[host] == BreakerHalfOpen {
		b.state[host] = BreakerClosed
		logger.Get().Info("circuit breaker closed", zap.String("host", host))
	}
}

func (b *Breaker) recordFailure(host string) {
	b.failures[host]++
	b.lastFailure[host] = time.Now()

	if b.failures[host] >= b.maxFailures || b.state[host] == BreakerHalfOpen {
		b.state[host] = BreakerOpen
		logger.Get().Warn("circuit breaker opened",
			zap.String("host", host),
			zap.Int("failures", b.failures[host]))
	}
}

// State returns the current state for a host.
func (b *Breaker) State(host string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.state[host]; ok {
		return state
	}
	return BreakerClosed
}
