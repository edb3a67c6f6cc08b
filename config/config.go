package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Matchmaking   MatchmakingConfig   `yaml:"matchmaking"`
	Entitlements  EntitlementsConfig  `yaml:"entitlements"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL        string `yaml:"url"`
	QueueGroup string `yaml:"queue_group"`
}

// HTTPConfig holds the ops HTTP listener configuration.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// MatchmakingConfig tunes the background workers.
type MatchmakingConfig struct {
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	OutboxBuffer   int           `yaml:"outbox_buffer"`
	DMPerSecond    float64       `yaml:"dm_per_second"`
	DMBurst        int           `yaml:"dm_burst"`
	LockTimeout    time.Duration `yaml:"lock_timeout"`
	RiverQueueSize int           `yaml:"river_queue_size"`
}

// EntitlementsConfig holds the static plan table.
type EntitlementsConfig struct {
	DefaultMaxPlayers int            `yaml:"default_max_players"`
	PremiumGuilds     []string       `yaml:"premium_guilds"`
	MaxPlayers        map[string]int `yaml:"max_players"`
	FreeFeatures      []string       `yaml:"free_features"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Observability.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Matchmaking.SweepInterval = d
		}
	}
	if v := os.Getenv("DEFAULT_MAX_PLAYERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Entitlements.DefaultMaxPlayers = n
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	cfg.NATS.URL = os.Getenv("NATS_URL")
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}
	cfg.NATS.QueueGroup = os.Getenv("NATS_QUEUE_GROUP")

	cfg.HTTP.Address = os.Getenv("HTTP_ADDRESS")
	cfg.Observability.Environment = os.Getenv("ENV")
	cfg.Observability.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.Observability.MetricsEnabled = os.Getenv("METRICS_ENABLED") != "false"

	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL value: %v", err)
		}
		cfg.Matchmaking.SweepInterval = d
	}
	if v := os.Getenv("DM_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DM_PER_SECOND value: %v", err)
		}
		cfg.Matchmaking.DMPerSecond = f
	}
	if v := os.Getenv("DEFAULT_MAX_PLAYERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_MAX_PLAYERS value: %v", err)
		}
		cfg.Entitlements.DefaultMaxPlayers = n
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.NATS.QueueGroup == "" {
		c.NATS.QueueGroup = "lobby-bot"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Matchmaking.SweepInterval <= 0 {
		c.Matchmaking.SweepInterval = time.Minute
	}
	if c.Matchmaking.OutboxBuffer <= 0 {
		c.Matchmaking.OutboxBuffer = 256
	}
	if c.Matchmaking.DMPerSecond <= 0 {
		c.Matchmaking.DMPerSecond = 5
	}
	if c.Matchmaking.DMBurst <= 0 {
		c.Matchmaking.DMBurst = 5
	}
	if c.Matchmaking.LockTimeout <= 0 {
		c.Matchmaking.LockTimeout = 10 * time.Second
	}
	if c.Matchmaking.RiverQueueSize <= 0 {
		c.Matchmaking.RiverQueueSize = 2
	}
}
