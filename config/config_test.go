package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/swap-aad-risk/internal/swap"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "swap-aad-risk", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 10*time.Second, cfg.API.ReadTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "swaps.requests", cfg.Kafka.Topics.SwapRequests)
	assert.Equal(t, 5, cfg.Kafka.Breaker.MaxFailures)
	assert.Equal(t, swap.BasisPoint, cfg.Risk.ForwardShift)
	assert.Equal(t, 50, cfg.Risk.HistoryLimit)

	assert.Equal(t, swap.DefaultConfig(), cfg.EngineConfig())
	assert.Equal(t, 4, cfg.ServiceConfig().Workers)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
  allowed_origins: ["https://desk.example"]
kafka:
  codec: protobuf
  brokers: [k1:9092, k2:9092]
risk:
  zero_shift: 0.001
  pay_receive_convention: pay_fixed_positive
  finite_difference: true
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.API.Port)
	assert.Equal(t, []string{"https://desk.example"}, cfg.APIServerConfig().AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaClientConfig().Brokers)
	assert.Equal(t, "protobuf", cfg.Kafka.Codec)

	engine := cfg.EngineConfig()
	assert.Equal(t, 0.001, engine.ZeroShift)
	assert.Equal(t, swap.BasisPoint, engine.ForwardShift)
	assert.Equal(t, swap.PayFixedPositive, engine.SignConvention)
	assert.True(t, cfg.ServiceConfig().FiniteDifference)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "risk:\n  workers: 2\n")
	t.Setenv("SWAPRISK_RISK_WORKERS", "16")
	t.Setenv("SWAPRISK_KAFKA_TOPICS_RISK_RESULTS", "desk.risk")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Risk.Workers)
	assert.Equal(t, "desk.risk", cfg.Kafka.Topics.RiskResults)
}

func TestInvalidValuesAreRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"convention", "risk:\n  pay_receive_convention: sideways\n"},
		{"shift", "risk:\n  forward_shift: 0\n"},
		{"codec", "kafka:\n  codec: avro\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeInvalidArgument, errors.TypeOf(err))
		})
	}
}

func TestMalformedFile(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, "api: [unclosed"))
	assert.Error(t, err)
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := LoadFrom("config.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.Risk.FiniteDifference)
	assert.Equal(t, "swaps.risk", cfg.Kafka.Topics.RiskResults)
}
