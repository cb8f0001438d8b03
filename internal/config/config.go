// Package config provides configuration loading and validation for the feed
// ranking service. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the feed ranking service.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database. Optional: when empty the service runs against the
	// in-memory store (development only).
	DatabaseURL string `koanf:"database_url"`

	// Redis profile cache. Optional: when the address is empty the cache
	// layer is skipped and every request hits the profile store.
	RedisAddr           string `koanf:"redis_addr"`
	ProfileCacheTTLSecs int    `koanf:"profile_cache_ttl_secs"`

	// Ranking calibration file (JSON). Empty means built-in defaults.
	CalibrationPath string `koanf:"calibration_path"`

	// CandidatePoolSize is how many recent items each ranking call
	// considers.
	CandidatePoolSize int `koanf:"candidate_pool_size"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingExporterType string  `koanf:"tracing_exporter_type"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
}

// Configuration validation errors.
var (
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
	ErrInvalidPoolSize        = errors.New("CANDIDATE_POOL_SIZE must be positive")
	ErrInvalidCacheTTL        = errors.New("PROFILE_CACHE_TTL_SECS must be positive")
	ErrMissingTracingEndpoint = errors.New("TRACING_ENDPOINT is required when tracing is enabled")
	ErrInvalidSamplingRate    = errors.New("TRACING_SAMPLING_RATE must be in [0, 1]")
)

// Default values for non-secret configuration.
const (
	DefaultPort                = 8080
	DefaultEnv                 = "development"
	DefaultProfileCacheTTLSecs = 300
	DefaultCandidatePoolSize   = 500
	DefaultTracingExporter     = "otlp-grpc"
	DefaultTracingSamplingRate = 0.1
)

// Load reads configuration from environment variables and an optional YAML
// config file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). If a config file path is provided and the file cannot be loaded,
// an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	cacheTTL, ttlErr := getEnvIntOrDefault("PROFILE_CACHE_TTL_SECS", k.Int("profile_cache_ttl_secs"), DefaultProfileCacheTTLSecs)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	poolSize, poolErr := getEnvIntOrDefault("CANDIDATE_POOL_SIZE", k.Int("candidate_pool_size"), DefaultCandidatePoolSize)
	if poolErr != nil {
		loadErrs = append(loadErrs, poolErr)
	}

	samplingRate, rateErr := getEnvFloatOrDefault("TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), DefaultTracingSamplingRate)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	tracingEnabled := k.Bool("tracing_enabled")
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		tracingEnabled = val == "true" || val == "1" || val == "yes" || val == "on"
	}

	cfg := &Config{
		Port:                port,
		Env:                 getEnvOrDefault("FEEDRANK_ENV", k.String("env"), DefaultEnv),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:           getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		ProfileCacheTTLSecs: cacheTTL,
		CalibrationPath:     getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		CandidatePoolSize:   poolSize,
		TracingEnabled:      tracingEnabled,
		TracingEndpoint:     getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingExporterType: getEnvOrDefault("TRACING_EXPORTER_TYPE", k.String("tracing_exporter_type"), DefaultTracingExporter),
		TracingSamplingRate: samplingRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() []error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.CandidatePoolSize <= 0 {
		errs = append(errs, ErrInvalidPoolSize)
	}
	if c.ProfileCacheTTLSecs <= 0 {
		errs = append(errs, ErrInvalidCacheTTL)
	}
	if c.TracingEnabled && c.TracingEndpoint == "" {
		errs = append(errs, ErrMissingTracingEndpoint)
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}

	return errs
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the environment
// variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid integer, got %q", envKey, val)
		}
		return parsed, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid number, got %q", envKey, val)
		}
		return parsed, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}
