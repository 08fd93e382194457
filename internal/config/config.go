package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Auction   AuctionConfig   `yaml:"auction"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	GinMode         string        `yaml:"gin_mode"`
	// CORSOrigins lists allowed browser origins; "*" allows any, empty disables CORS.
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects and configures the auction store backend.
type StoreConfig struct {
	Driver       string        `yaml:"driver"` // "memory" or "postgres"
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	DBName       string        `yaml:"dbname"`
	SSLMode      string        `yaml:"sslmode"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// DSN returns the Postgres connection string.
func (s StoreConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.DBName, s.SSLMode,
	)
}

// AuctionConfig tunes bidding and expiry behaviour.
type AuctionConfig struct {
	AntiSnipeWindow    time.Duration `yaml:"anti_snipe_window"`
	AntiSnipeExtension time.Duration `yaml:"anti_snipe_extension"`
	MaxBidAttempts     int           `yaml:"max_bid_attempts"`
	DefaultDuration    time.Duration `yaml:"default_duration"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
}

// TelemetryConfig holds OpenTelemetry settings. An empty endpoint disables export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
			GinMode:         "release",
			CORSOrigins:     []string{"*"},
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver:       "memory",
			Host:         "localhost",
			Port:         5432,
			SSLMode:      "disable",
			QueryTimeout: 5 * time.Second,
		},
		Auction: AuctionConfig{
			AntiSnipeWindow:    10 * time.Second,
			AntiSnipeExtension: 10 * time.Second,
			MaxBidAttempts:     5,
			DefaultDuration:    60 * time.Second,
			SweepInterval:      time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "live-shopping",
			ServiceVersion: "0.1.0",
		},
	}
}

// Load reads a YAML configuration file from the given path on top of the
// defaults. An empty path yields the defaults. PORT overrides server.port.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parsing PORT %q: %w", p, err)
		}
		cfg.Server.Port = port
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Store.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported store driver %q: must be \"memory\" or \"postgres\"", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("server.cors_origins: %q must be \"*\" or an http(s) origin", origin)
		}
	}
	if c.Auction.MaxBidAttempts < 1 {
		return fmt.Errorf("auction.max_bid_attempts must be at least 1")
	}
	durations := map[string]time.Duration{
		"auction.anti_snipe_window":    c.Auction.AntiSnipeWindow,
		"auction.anti_snipe_extension": c.Auction.AntiSnipeExtension,
		"auction.default_duration":     c.Auction.DefaultDuration,
		"auction.sweep_interval":       c.Auction.SweepInterval,
		"store.query_timeout":          c.Store.QueryTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
