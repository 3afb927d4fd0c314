// Package config loads runtime configuration for the matching engine
// process from flags and environment variables. No pack repo carries a
// config library (compared with the database driver, broker, or storage
// concerns elsewhere in this codebase), so this is a standard-library
// choice — grounded on Lidne-marketdata-agregator's internal/config.Load
// env-var pattern, widened with flag.Parse so operators can override
// any value on the command line too.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSymbol          = "BTC-USD"
	defaultGRPCAddr        = ":50051"
	defaultWALDir          = "./data/wal"
	defaultSnapshotDir     = "./data/snapshot"
	defaultKafkaBrokers    = "localhost:9092"
	defaultTradeTopic      = "lobengine.trades"
	defaultMarketDataTopic = "lobengine.marketdata"
	defaultSnapshotEvery   = 2 * time.Second
	defaultMarketDataEvery = time.Second
	defaultEpochEvery      = 2 * time.Second
	defaultSnapshotDepth   = 20
)

// Config holds every runtime setting cmd/server needs to wire the
// matching engine, its persistence layer, and its transports.
type Config struct {
	Symbol          string
	GRPCAddr        string
	WALDir          string
	SnapshotDir     string
	KafkaBrokers    []string
	TradeTopic      string
	MarketDataTopic string
	SnapshotEvery   time.Duration
	MarketDataEvery time.Duration
	EpochEvery      time.Duration
	SnapshotDepth   int
}

// Load builds a Config from flags, falling back to environment
// variables and then to built-in defaults in that order of precedence
// — flags explicitly set on the command line win even when the
// corresponding environment variable is also set.
func Load(args []string) (Config, error) {
	fs := flag.NewFlagSet("lobengine", flag.ContinueOnError)

	symbol := fs.String("symbol", getString("LOB_SYMBOL", defaultSymbol), "traded symbol")
	grpcAddr := fs.String("grpc-addr", getString("LOB_GRPC_ADDR", defaultGRPCAddr), "gRPC listen address")
	walDir := fs.String("wal-dir", getString("LOB_WAL_DIR", defaultWALDir), "WAL segment directory")
	snapshotDir := fs.String("snapshot-dir", getString("LOB_SNAPSHOT_DIR", defaultSnapshotDir), "Pebble snapshot store directory")
	kafkaBrokers := fs.String("kafka-brokers", getString("LOB_KAFKA_BROKERS", defaultKafkaBrokers), "comma-separated Kafka broker addresses")
	tradeTopic := fs.String("trade-topic", getString("LOB_TRADE_TOPIC", defaultTradeTopic), "Kafka topic for trade broadcast")
	marketDataTopic := fs.String("marketdata-topic", getString("LOB_MARKETDATA_TOPIC", defaultMarketDataTopic), "Kafka topic for enriched snapshot publishing")
	snapshotEvery, err1 := getDuration("LOB_SNAPSHOT_EVERY", defaultSnapshotEvery)
	marketDataEvery, err2 := getDuration("LOB_MARKETDATA_EVERY", defaultMarketDataEvery)
	epochEvery, err3 := getDuration("LOB_EPOCH_EVERY", defaultEpochEvery)
	snapshotDepth, err4 := getInt("LOB_SNAPSHOT_DEPTH", defaultSnapshotDepth)

	if err := firstErr(err1, err2, err3, err4); err != nil {
		return Config{}, err
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{
		Symbol:          *symbol,
		GRPCAddr:        *grpcAddr,
		WALDir:          *walDir,
		SnapshotDir:     *snapshotDir,
		KafkaBrokers:    splitAndTrim(*kafkaBrokers),
		TradeTopic:      *tradeTopic,
		MarketDataTopic: *marketDataTopic,
		SnapshotEvery:   snapshotEvery,
		MarketDataEvery: marketDataEvery,
		EpochEvery:      epochEvery,
		SnapshotDepth:   snapshotDepth,
	}, nil
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
