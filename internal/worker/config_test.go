package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedFillsZeroFieldsWithDefaults(t *testing.T) {
	cfg := Config{}.normalized()
	assert.Equal(t, time.Second, cfg.PollingInterval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.StalledJobTimeout)
}

func TestNormalizedPreservesExplicitValues(t *testing.T) {
	cfg := Config{BatchSize: 50, MaxRetries: 10}.normalized()
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 10, cfg.MaxRetries)
}
