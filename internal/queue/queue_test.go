package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesPerAttempt(t *testing.T) {
	initial := time.Second
	assert.Equal(t, 2*time.Second, Backoff(initial, 1, 0))
	assert.Equal(t, 4*time.Second, Backoff(initial, 2, 0))
	assert.Equal(t, 8*time.Second, Backoff(initial, 3, 0))
}

func TestBackoffCapsAtMax(t *testing.T) {
	got := Backoff(time.Second, 30, 3_000_000*time.Millisecond)
	assert.Equal(t, 3_000_000*time.Millisecond, got)
}

func TestBackoffZeroAttemptsReturnsInitial(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(time.Second, 0, 0))
}
