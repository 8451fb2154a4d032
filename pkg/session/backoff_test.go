package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffLinearSequence(t *testing.T) {
	b := NewBackoff()

	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		1500 * time.Millisecond,
		2000 * time.Millisecond,
		2500 * time.Millisecond,
		2500 * time.Millisecond, // capped
	}
	for i, expected := range want {
		assert.Equal(t, expected, b.Next(), "attempt %d", i+1)
	}
	assert.Equal(t, len(want), b.Attempts())
}

func TestBackoffPeekDoesNotAdvance(t *testing.T) {
	b := NewBackoff()

	assert.Equal(t, InitialRetryDelay, b.Peek())
	assert.Equal(t, InitialRetryDelay, b.Peek())
	assert.Equal(t, 0, b.Attempts())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff()
	b.Next()
	b.Next()

	b.Reset()
	assert.Equal(t, InitialRetryDelay, b.Next())
	assert.Equal(t, 1, b.Attempts())
}

func TestBackoffConfigDefaults(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})
	assert.Equal(t, InitialRetryDelay, b.Peek())

	b = NewBackoffWithConfig(BackoffConfig{Initial: 10 * time.Millisecond, Step: 5 * time.Millisecond, Max: 18 * time.Millisecond})
	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.Equal(t, 15*time.Millisecond, b.Next())
	assert.Equal(t, 18*time.Millisecond, b.Next())
	assert.Equal(t, 18*time.Millisecond, b.Next())
}
