package session

import (
	"sync"
	"time"
)

// Enumeration retry pacing. The bridge may still be booting when the host
// connects, so delays grow linearly rather than exponentially: the whole
// retry budget has to fit in an interactive startup.
const (
	// InitialRetryDelay is the delay after the first failed attempt.
	InitialRetryDelay = 500 * time.Millisecond

	// RetryDelayStep is the linear increment per failed attempt.
	RetryDelayStep = 500 * time.Millisecond

	// MaxRetryDelay caps the inter-attempt delay.
	MaxRetryDelay = 2500 * time.Millisecond
)

// Backoff calculates linearly increasing retry delays with a cap.
type Backoff struct {
	mu sync.Mutex

	// Current delay (returned by the next call to Next)
	current time.Duration

	// Configuration
	initial time.Duration
	step    time.Duration
	max     time.Duration

	// Attempt counter
	attempts int
}

// NewBackoff creates a backoff calculator with default settings.
func NewBackoff() *Backoff {
	return &Backoff{
		current: InitialRetryDelay,
		initial: InitialRetryDelay,
		step:    RetryDelayStep,
		max:     MaxRetryDelay,
	}
}

// BackoffConfig allows customizing backoff parameters.
type BackoffConfig struct {
	Initial time.Duration
	Step    time.Duration
	Max     time.Duration
}

// NewBackoffWithConfig creates a backoff calculator with custom settings.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialRetryDelay
	}
	if cfg.Step <= 0 {
		cfg.Step = RetryDelayStep
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxRetryDelay
	}

	return &Backoff{
		current: cfg.Initial,
		initial: cfg.Initial,
		step:    cfg.Step,
		max:     cfg.Max,
	}
}

// Next returns the current delay and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current

	b.attempts++
	next := b.current + b.step
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Peek returns the current delay without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Reset resets the backoff to initial values. Call this after a
// successful attempt.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of backoff attempts since last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
