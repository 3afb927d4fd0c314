package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFlagsOrEnv(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, defaultSymbol, cfg.Symbol)
	require.Equal(t, defaultGRPCAddr, cfg.GRPCAddr)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, defaultSnapshotEvery, cfg.SnapshotEvery)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"-symbol", "ETH-USD", "-grpc-addr", ":9999", "-kafka-brokers", "a:1, b:2"})
	require.NoError(t, err)
	require.Equal(t, "ETH-USD", cfg.Symbol)
	require.Equal(t, ":9999", cfg.GRPCAddr)
	require.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
}

func TestLoad_EnvOverridesBuiltinDefault(t *testing.T) {
	t.Setenv("LOB_SYMBOL", "SOL-USD")
	t.Setenv("LOB_SNAPSHOT_EVERY", "5s")
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, "SOL-USD", cfg.Symbol)
	require.Equal(t, 5*time.Second, cfg.SnapshotEvery)
}

func TestLoad_InvalidDurationEnvReturnsError(t *testing.T) {
	t.Setenv("LOB_SNAPSHOT_EVERY", "not-a-duration")
	_, err := Load(nil)
	require.Error(t, err)
}
