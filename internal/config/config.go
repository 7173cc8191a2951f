// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sauce8888/MVP1/internal/logger"
)

// Config holds runtime configuration for the server and CLI binaries.
type Config struct {
	Addr      string
	DataDir   string
	StaticDir string

	FetchTimeout      time.Duration
	SyncInterval      time.Duration
	SyncMinInterval   time.Duration
	RecurrenceHorizon time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers   []string
	KafkaSyncTopic string

	Log *logger.Logger
}

// Load reads configuration from the environment, applying defaults for
// anything unset, and exits via the logger if validation fails.
func Load(serviceName string) *Config {
	cfg := &Config{
		Addr:      getEnvStr(EnvAddr, DefaultAddr),
		DataDir:   getEnvStr(EnvDataDir, DefaultDataDir),
		StaticDir: getEnvStr(EnvStaticDir, DefaultStaticDir),

		FetchTimeout:      getEnvDuration(EnvFetchTimeout, DefaultFetchTimeout),
		SyncInterval:      getEnvDuration(EnvSyncInterval, DefaultSyncInterval),
		SyncMinInterval:   getEnvDuration(EnvSyncMinInterval, DefaultSyncMinInterval),
		RecurrenceHorizon: getEnvDuration(EnvRecurrenceHorizon, DefaultRecurrenceHorizon),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		KafkaBrokers:   getEnvList(EnvKafkaBrokers),
		KafkaSyncTopic: getEnvStr(EnvKafkaSyncTopic, DefaultKafkaSyncTopic),

		Log: logger.New(logger.Config{
			Level:   getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:  logger.JSON,
			Service: serviceName,
		}),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// DatabasePath returns the SQLite file path under the data directory.
func (cfg *Config) DatabasePath() string {
	return cfg.DataDir + "/mvp1.db"
}

// Validate checks the loaded configuration for obviously broken values.
func (cfg *Config) Validate() error {
	var errs []string

	if _, port, err := net.SplitHostPort(cfg.Addr); err != nil {
		errs = append(errs, fmt.Sprintf("Addr must be host:port, got: %s", cfg.Addr))
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		errs = append(errs, fmt.Sprintf("Addr port must be between 1 and 65535, got: %s", port))
	}

	if cfg.DataDir == "" {
		errs = append(errs, "DataDir cannot be empty")
	}

	if cfg.FetchTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("FetchTimeout must be positive, got: %s", cfg.FetchTimeout))
	}
	if cfg.SyncInterval <= 0 {
		errs = append(errs, fmt.Sprintf("SyncInterval must be positive, got: %s", cfg.SyncInterval))
	}
	if cfg.SyncMinInterval < 0 {
		errs = append(errs, fmt.Sprintf("SyncMinInterval cannot be negative, got: %s", cfg.SyncMinInterval))
	}
	if cfg.RecurrenceHorizon <= 0 {
		errs = append(errs, fmt.Sprintf("RecurrenceHorizon must be positive, got: %s", cfg.RecurrenceHorizon))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		msg := "Configuration validation failed:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}

// LogConfiguration logs the effective configuration at startup.
func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded",
		"addr", cfg.Addr,
		"data_dir", cfg.DataDir,
		"static_dir", cfg.StaticDir,
		"fetch_timeout", cfg.FetchTimeout,
		"sync_interval", cfg.SyncInterval,
		"sync_min_interval", cfg.SyncMinInterval,
		"recurrence_horizon", cfg.RecurrenceHorizon,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"kafka_enabled", len(cfg.KafkaBrokers) > 0,
		"kafka_sync_topic", cfg.KafkaSyncTopic,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
