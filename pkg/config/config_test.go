package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
environment: test
pair:
  symbol_a: BTCUSDT
  symbol_b: ETHUSDT
  interval: 1m
  window: 60
  zscore_threshold: 2.0
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("server port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Binance.WebSocketURL == "" || cfg.Binance.RESTURL == "" {
		t.Fatalf("exchange endpoints not defaulted")
	}
	if cfg.Binance.ReconnectBase != time.Second || cfg.Binance.ReconnectMax != 30*time.Second {
		t.Fatalf("reconnect backoff defaults wrong: %v / %v",
			cfg.Binance.ReconnectBase, cfg.Binance.ReconnectMax)
	}
	if cfg.Pair.Retention != 1000 || cfg.Pair.ExportCapacity != 10000 {
		t.Fatalf("pair retention/export defaults wrong: %d / %d",
			cfg.Pair.Retention, cfg.Pair.ExportCapacity)
	}
	if cfg.Archive.Type != "none" {
		t.Fatalf("archive type = %q, want default none", cfg.Archive.Type)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Fatalf("log defaults wrong: %q / %q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Cache.Host != "localhost" || cfg.Cache.Port != 6379 {
		t.Fatalf("cache defaults wrong: %s:%d", cfg.Cache.Host, cfg.Cache.Port)
	}
}

func TestLoadRejectsBadAnalysisParams(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing environment", strings.Replace(validYAML, "environment: test", "", 1)},
		{"missing symbol", strings.Replace(validYAML, "symbol_b: ETHUSDT", "", 1)},
		{"same symbols", strings.Replace(validYAML, "symbol_b: ETHUSDT", "symbol_b: btcusdt", 1)},
		{"bad interval", strings.Replace(validYAML, "interval: 1m", "interval: 3m", 1)},
		{"window too small", strings.Replace(validYAML, "window: 60", "window: 29", 1)},
		{"window too large", strings.Replace(validYAML, "window: 60", "window: 501", 1)},
		{"threshold too small", strings.Replace(validYAML, "zscore_threshold: 2.0", "zscore_threshold: 0.9", 1)},
		{"threshold too large", strings.Replace(validYAML, "zscore_threshold: 2.0", "zscore_threshold: 4.1", 1)},
		{"retention below window", validYAML + "  retention: 59\n"},
		{"bad archive", validYAML + "archive:\n  type: s3\n"},
		{"kafka without brokers", validYAML + "archive:\n  type: kafka\n"},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.body)); err == nil {
			t.Fatalf("%s: accepted", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PAIR_SYMBOL_A", "SOLUSDT")
	t.Setenv("PAIR_WINDOW", "120")
	t.Setenv("PAIR_ZSCORE_THRESHOLD", "3.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pair.SymbolA != "SOLUSDT" {
		t.Fatalf("symbol_a = %q, want env override", cfg.Pair.SymbolA)
	}
	if cfg.Pair.Window != 120 || cfg.Pair.ZscoreThreshold != 3.5 {
		t.Fatalf("window/threshold overrides wrong: %d / %g",
			cfg.Pair.Window, cfg.Pair.ZscoreThreshold)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadWithEnvRevalidates(t *testing.T) {
	t.Setenv("PAIR_WINDOW", "7")
	if _, err := LoadWithEnv(writeConfig(t, validYAML)); err == nil {
		t.Fatalf("out-of-range env override accepted")
	}
}

func TestSymbolsLowercased(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	syms := cfg.Symbols()
	if len(syms) != 2 || syms[0] != "btcusdt" || syms[1] != "ethusdt" {
		t.Fatalf("symbols = %v", syms)
	}
}
