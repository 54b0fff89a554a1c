package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseURL        = "tasks.db"
	DefaultListenAddr         = "127.0.0.1:3000"
	DefaultMaxConcurrentTasks = 10
	DefaultPollInterval       = time.Second
	DefaultMaxOpenConns       = 5
	DefaultBarURL             = "https://www.whattimeisitrightnow.com/"
	DefaultLogLevel           = "info"
	DefaultShutdownTimeout    = 10 * time.Second
)

// Config holds the settings shared by the scheduler, worker and taskctl
// binaries. Each command overrides fields from its own flags.
type Config struct {
	DatabaseURL        string
	ListenAddr         string
	MaxConcurrentTasks int
	PollInterval       time.Duration
	MaxOpenConns       int
	BarURL             string
	LogLevel           string
	ShutdownTimeout    time.Duration
}

func Default() Config {
	return Config{
		DatabaseURL:        DefaultDatabaseURL,
		ListenAddr:         DefaultListenAddr,
		MaxConcurrentTasks: DefaultMaxConcurrentTasks,
		PollInterval:       DefaultPollInterval,
		MaxOpenConns:       DefaultMaxOpenConns,
		BarURL:             DefaultBarURL,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
	}
}

// Load reads an optional .env file from the working directory and then the
// process environment on top of the defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.DatabaseURL = v
	}
	if v, ok := lookup("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := lookup("BAR_URL"); ok && v != "" {
		cfg.BarURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}

	var err error
	if cfg.MaxConcurrentTasks, err = envInt(lookup, "MAX_CONCURRENT_TASKS", cfg.MaxConcurrentTasks); err != nil {
		return Config{}, err
	}
	if cfg.MaxOpenConns, err = envInt(lookup, "DB_MAX_CONNS", cfg.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = envDuration(lookup, "POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration(lookup, "SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database url is required")
	}
	if c.MaxConcurrentTasks <= 0 {
		return fmt.Errorf("max concurrent tasks must be positive, got %d", c.MaxConcurrentTasks)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive, got %d", c.MaxOpenConns)
	}
	return nil
}

func envInt(lookup func(string) (string, bool), key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(lookup func(string) (string, bool), key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
