package retry

import (
	"fmt"
	"sync"
	"time"
)

// ── Breaker state ────────────────────────────────────────────────────

// BreakerState is the breaker's operational state.
type BreakerState int

const (
	// BreakerClosed is normal operation; calls pass through.
	BreakerClosed BreakerState = iota
	// BreakerOpen means the relay is failing; calls are rejected
	// without touching the wire.
	BreakerOpen
	// BreakerHalfOpen lets a few probe calls through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ── Configuration ────────────────────────────────────────────────────

// BreakerConfig configures a [Breaker].
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker (default 5).
	Threshold int
	// Cooldown is how long the breaker stays open before probing
	// (default 30s).
	Cooldown time.Duration
	// ProbeSuccesses is the number of consecutive half-open successes
	// required to close again (default 2).
	ProbeSuccesses int
}

// RelayBreakerConfig is tuned for one SMTP relay: a matching run can
// produce a burst of notifications, and once the relay is clearly down
// the remaining sends should fail fast rather than each burn a full
// backoff budget.
func RelayBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		Threshold:      3,
		Cooldown:       time.Minute,
		ProbeSuccesses: 1,
	}
}

// ── Breaker ──────────────────────────────────────────────────────────

// Breaker short-circuits calls to a failing dependency by counting
// consecutive failures and rejecting outright once a threshold is
// crossed.
type Breaker struct {
	mu             sync.Mutex
	state          BreakerState
	failures       int
	successes      int
	threshold      int
	cooldown       time.Duration
	probeSuccesses int
	lastFailure    time.Time
}

// NewBreaker creates a breaker with the given config; nil gets the
// relay defaults.
func NewBreaker(cfg *BreakerConfig) *Breaker {
	if cfg == nil {
		cfg = RelayBreakerConfig()
	}
	b := &Breaker{
		state:          BreakerClosed,
		threshold:      cfg.Threshold,
		cooldown:       cfg.Cooldown,
		probeSuccesses: cfg.ProbeSuccesses,
	}
	if b.threshold <= 0 {
		b.threshold = 5
	}
	if b.cooldown <= 0 {
		b.cooldown = 30 * time.Second
	}
	if b.probeSuccesses <= 0 {
		b.probeSuccesses = 2
	}
	return b
}

// Execute runs fn through the breaker. While the breaker is open, fn
// is not called and an error is returned immediately.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.successes = 0
	b.state = BreakerClosed
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = BreakerHalfOpen
			return nil
		}
		remaining := b.cooldown - time.Since(b.lastFailure)
		return fmt.Errorf("relay circuit open after %d consecutive failures, retry in %v",
			b.failures, remaining.Truncate(time.Second))
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.successes = 0
		b.lastFailure = time.Now()
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			b.state = BreakerOpen
		}
		return
	}

	b.successes++
	switch b.state {
	case BreakerHalfOpen:
		if b.successes >= b.probeSuccesses {
			b.failures = 0
			b.state = BreakerClosed
		}
	case BreakerClosed:
		b.failures = 0
	}
}
