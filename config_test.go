package ragmatic

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigBindRegistersDefaults(t *testing.T) {
	var cfg Config
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.Bind(flags)
	require.NoError(t, flags.Parse(nil))

	assert.Equal(t, time.Second, cfg.PollingInterval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.StalledJobTimeout)
}

func TestConfigPreflightRejectsMissingConnectString(t *testing.T) {
	cfg := Config{}
	err := cfg.Preflight()
	assert.Error(t, err)
}

func TestConfigPreflightFillsDefaultPoolSize(t *testing.T) {
	cfg := Config{ConnectString: "postgres://localhost/ragmatic"}
	require.NoError(t, cfg.Preflight())
	assert.Equal(t, int32(10), cfg.MaxPoolConns)
}

func TestConfigPreflightRejectsNegativeBatchSize(t *testing.T) {
	cfg := Config{ConnectString: "postgres://localhost/ragmatic", BatchSize: -1}
	assert.Error(t, cfg.Preflight())
}

func TestConfigOptionsAppliesEveryKnob(t *testing.T) {
	cfg := Config{
		ConnectString:     "postgres://localhost/ragmatic",
		MaxPoolConns:      20,
		PollingInterval:   2 * time.Second,
		BatchSize:         7,
		MaxRetries:        5,
		InitialRetryDelay: 3 * time.Second,
		StalledJobTimeout: 2 * time.Minute,
	}

	o := defaultOptions()
	for _, opt := range cfg.Options() {
		opt(&o)
	}

	assert.Equal(t, int32(20), o.maxPoolConns)
	assert.Equal(t, 2*time.Second, o.workerConfig.PollingInterval)
	assert.Equal(t, 7, o.workerConfig.BatchSize)
	assert.Equal(t, 5, o.workerConfig.MaxRetries)
	assert.Equal(t, 3*time.Second, o.workerConfig.InitialRetryDelay)
	assert.Equal(t, 2*time.Minute, o.workerConfig.StalledJobTimeout)
}
