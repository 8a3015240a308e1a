// Package config loads the account server configuration from defaults, an
// optional YAML file and HXMODAL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HXMODAL_"

type Config struct {
	Host     string
	HTTPPort int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	TicketSecret   string
	TicketTTL      time.Duration
	EncryptTickets bool

	MinPasswordLength int
	SuccessMessage    string

	LogLevel  string
	LogFormat string
}

type configFile struct {
	Server struct {
		Host            string `yaml:"host"`
		HTTPPort        int    `yaml:"http_port"`
		ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
	} `yaml:"server"`
	Tickets struct {
		Secret     string `yaml:"secret"`
		TTLMinutes int    `yaml:"ttl_minutes"`
		Encrypt    *bool  `yaml:"encrypt"`
	} `yaml:"tickets"`
	Accounts struct {
		MinPasswordLength int    `yaml:"min_password_length"`
		SuccessMessage    string `yaml:"success_message"`
	} `yaml:"accounts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Host:              "127.0.0.1",
		HTTPPort:          8080,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		TicketSecret:      "hxmodal-dev-secret",
		TicketTTL:         30 * time.Minute,
		MinPasswordLength: 8,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load reads path (a missing file is not an error), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.Server.Host != "" {
		c.Host = f.Server.Host
	}
	if f.Server.HTTPPort > 0 {
		c.HTTPPort = f.Server.HTTPPort
	}
	if f.Server.ReadTimeoutSec > 0 {
		c.ReadTimeout = time.Duration(f.Server.ReadTimeoutSec) * time.Second
	}
	if f.Server.WriteTimeoutSec > 0 {
		c.WriteTimeout = time.Duration(f.Server.WriteTimeoutSec) * time.Second
	}
	if f.Tickets.Secret != "" {
		c.TicketSecret = f.Tickets.Secret
	}
	if f.Tickets.TTLMinutes > 0 {
		c.TicketTTL = time.Duration(f.Tickets.TTLMinutes) * time.Minute
	}
	if f.Tickets.Encrypt != nil {
		c.EncryptTickets = *f.Tickets.Encrypt
	}
	if f.Accounts.MinPasswordLength > 0 {
		c.MinPasswordLength = f.Accounts.MinPasswordLength
	}
	if f.Accounts.SuccessMessage != "" {
		c.SuccessMessage = f.Accounts.SuccessMessage
	}
	if f.Log.Level != "" {
		c.LogLevel = f.Log.Level
	}
	if f.Log.Format != "" {
		c.LogFormat = f.Log.Format
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = envOrDefault("HOST", c.Host)
	c.HTTPPort = envInt("HTTP_PORT", c.HTTPPort)
	c.ReadTimeout = time.Duration(envInt("READ_TIMEOUT_SECONDS", int(c.ReadTimeout.Seconds()))) * time.Second
	c.WriteTimeout = time.Duration(envInt("WRITE_TIMEOUT_SECONDS", int(c.WriteTimeout.Seconds()))) * time.Second
	c.TicketSecret = envOrDefault("TICKET_SECRET", c.TicketSecret)
	c.TicketTTL = time.Duration(envInt("TICKET_TTL_MINUTES", int(c.TicketTTL.Minutes()))) * time.Minute
	c.EncryptTickets = envBool("ENCRYPT_TICKETS", c.EncryptTickets)
	c.MinPasswordLength = envInt("MIN_PASSWORD_LENGTH", c.MinPasswordLength)
	c.SuccessMessage = envOrDefault("SUCCESS_MESSAGE", c.SuccessMessage)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTPPort)
	}
	if strings.TrimSpace(c.TicketSecret) == "" {
		return fmt.Errorf("missing %sTICKET_SECRET", EnvPrefix)
	}
	if c.MinPasswordLength < 1 {
		return fmt.Errorf("min password length must be positive, got %d", c.MinPasswordLength)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Logger builds the process logger described by the configuration.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(EnvPrefix + name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(EnvPrefix + name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(EnvPrefix + name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}
