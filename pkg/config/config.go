package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"PairPulse/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
		// CollectTopic enables aggregated log shipping to Kafka when the
		// archive backend already maintains a producer.
		CollectTopic string `yaml:"collect_topic"`
	} `yaml:"log"`
	Pair struct {
		SymbolA         string  `yaml:"symbol_a"`
		SymbolB         string  `yaml:"symbol_b"`
		Interval        string  `yaml:"interval"`
		Window          int     `yaml:"window"`
		ZscoreThreshold float64 `yaml:"zscore_threshold"`
		Retention       int     `yaml:"retention"`
		ExportCapacity  int     `yaml:"export_capacity"`
	} `yaml:"pair"`
	Binance struct {
		WebSocketURL     string        `yaml:"websocket_url"`
		RESTURL          string        `yaml:"rest_url"`
		ReconnectBase    time.Duration `yaml:"reconnect_base"`
		ReconnectMax     time.Duration `yaml:"reconnect_max"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		VerifySymbols    bool          `yaml:"verify_symbols"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	} `yaml:"binance"`
	Archive struct {
		Type      string        `yaml:"type"` // none, kafka, clickhouse
		BatchSize int           `yaml:"batch_size"`
		FlushWait time.Duration `yaml:"flush_wait"`
	} `yaml:"archive"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		BarsTopic    string   `yaml:"bars_topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Cache struct {
		Enabled  bool          `yaml:"enabled"`
		TTL      time.Duration `yaml:"ttl"`
		Redis    bool          `yaml:"redis"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
	} `yaml:"cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PAIR_SYMBOL_A"); v != "" {
		c.Pair.SymbolA = v
	}
	if v := os.Getenv("PAIR_SYMBOL_B"); v != "" {
		c.Pair.SymbolB = v
	}
	if v := os.Getenv("PAIR_INTERVAL"); v != "" {
		c.Pair.Interval = v
	}
	if v := os.Getenv("PAIR_WINDOW"); v != "" {
		c.Pair.Window = util.ParseIntDefault(v, c.Pair.Window)
	}
	if v := os.Getenv("PAIR_ZSCORE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Pair.ZscoreThreshold = f
		}
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("ARCHIVE"); v != "" {
		c.Archive.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Binance.WebSocketURL == "" {
		c.Binance.WebSocketURL = "wss://stream.binance.com:9443/stream"
	}
	if c.Binance.RESTURL == "" {
		c.Binance.RESTURL = "https://api.binance.com"
	}
	if c.Binance.ReconnectBase <= 0 {
		c.Binance.ReconnectBase = time.Second
	}
	if c.Binance.ReconnectMax <= 0 {
		c.Binance.ReconnectMax = 30 * time.Second
	}
	if c.Binance.PingInterval <= 0 {
		c.Binance.PingInterval = 20 * time.Second
	}
	if c.Binance.HandshakeTimeout <= 0 {
		c.Binance.HandshakeTimeout = 10 * time.Second
	}
	if c.Pair.Interval == "" {
		c.Pair.Interval = "1m"
	}
	if c.Pair.Retention <= 0 {
		c.Pair.Retention = 1000
	}
	if c.Pair.ExportCapacity <= 0 {
		c.Pair.ExportCapacity = 10000
	}
	if c.Archive.Type == "" {
		c.Archive.Type = "none"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Second
	}
	if c.Cache.Host == "" {
		c.Cache.Host = "localhost"
	}
	if c.Cache.Port <= 0 {
		c.Cache.Port = 6379
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks the configuration before any data processing begins.
// An out-of-range analysis parameter is a setup-time failure, never a
// runtime one.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Pair.SymbolA == "" || c.Pair.SymbolB == "" {
		return fmt.Errorf("pair.symbol_a and pair.symbol_b are required")
	}
	if strings.EqualFold(c.Pair.SymbolA, c.Pair.SymbolB) {
		return fmt.Errorf("pair.symbol_a and pair.symbol_b must differ")
	}
	if c.Pair.Interval != "1m" && c.Pair.Interval != "5m" {
		return fmt.Errorf("pair.interval must be '1m' or '5m', got '%s'", c.Pair.Interval)
	}
	if c.Pair.Window < 30 || c.Pair.Window > 500 {
		return fmt.Errorf("pair.window must be in [30,500], got %d", c.Pair.Window)
	}
	if c.Pair.ZscoreThreshold < 1.0 || c.Pair.ZscoreThreshold > 4.0 {
		return fmt.Errorf("pair.zscore_threshold must be in [1.0,4.0], got %g", c.Pair.ZscoreThreshold)
	}
	if c.Pair.Retention < c.Pair.Window {
		return fmt.Errorf("pair.retention (%d) must be >= pair.window (%d)", c.Pair.Retention, c.Pair.Window)
	}
	switch c.Archive.Type {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("archive.type must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Archive.Type)
	}
	if c.Archive.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty with archive.type=kafka")
	}
	return nil
}

// Symbols returns both pair legs, lowercased for stream subscription.
func (c *Config) Symbols() []string {
	return []string{strings.ToLower(c.Pair.SymbolA), strings.ToLower(c.Pair.SymbolB)}
}
