package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents configuration shared by the registry, context/tool, and
// event bus service binaries.
//
// This structure captures static configuration:
//   - Logging and telemetry behavior
//   - Service identity (name, listen address)
//   - Token issuer / JWKS endpoint used by the key set cache
//   - Backend connection strings (Postgres, Redis, mTLS certificate directory)
//   - Admission pipeline tuning (breaker thresholds, response cache TTL)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CAPFABRIC_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// The only command-line flag, --config, selects the configuration file; no
// flag overrides an individual setting.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Service identifies this binary for telemetry/logging and JWT audience checks
	Service ServiceConfig `mapstructure:"service" yaml:"service"`

	// Auth configures the key set cache and token verifier
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// TLS contains the mTLS certificate directory configuration
	TLS TLSConfig `mapstructure:"tls" yaml:"tls"`

	// Postgres configures the context/tool store's database connection
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`

	// Redis configures the registry and event bus backing store
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`

	// Breaker configures the admission pipeline's circuit breaker
	Breaker BreakerConfig `mapstructure:"breaker" yaml:"breaker"`

	// Cache configures the admission pipeline's response cache
	Cache ResponseCacheConfig `mapstructure:"cache" yaml:"cache"`

	// DemoTelemetry enables the Context/Tool server's simulated telemetry
	// publisher used for local smoke-testing (off by default).
	DemoTelemetry bool `mapstructure:"demo_telemetry" yaml:"demo_telemetry"`
}

// ServiceConfig identifies a single fabric service binary.
type ServiceConfig struct {
	// Name is the gRPC service identity: registry, contexttool, or eventbus
	Name string `mapstructure:"name" validate:"required" yaml:"name"`

	// ListenAddress is the address the gRPC server binds to
	ListenAddress string `mapstructure:"listen_address" validate:"required" yaml:"listen_address"`
}

// AuthConfig configures the key set cache and token verifier.
type AuthConfig struct {
	// Issuer is the expected token issuer (iss claim) and the base URL used
	// to fetch <issuer>/.well-known/jwks.json
	Issuer string `mapstructure:"issuer" validate:"required" yaml:"issuer"`

	// Audience is required by validation, but the service binaries do not
	// read it: the admission pipeline checks a token's aud claim against
	// Service.Name, by exact match.
	Audience string `mapstructure:"audience" validate:"required" yaml:"audience"`

	// JWKSTTL controls how long a fetched key set is cached before refresh
	JWKSTTL time.Duration `mapstructure:"jwks_ttl" yaml:"jwks_ttl"`

	// ClockSkew is the allowed leeway when checking iat/exp claims
	ClockSkew time.Duration `mapstructure:"clock_skew" yaml:"clock_skew"`
}

// TLSConfig configures the mTLS channel credentials.
type TLSConfig struct {
	// CertsDir holds server.crt, server.key, and ca.crt
	CertsDir string `mapstructure:"certs_dir" validate:"required" yaml:"certs_dir"`
}

// PostgresConfig configures the context/tool store's database connection.
type PostgresConfig struct {
	// URL is a standard postgres:// connection string
	URL string `mapstructure:"url" yaml:"url"`
}

// RedisConfig configures the registry and event bus backing store.
type RedisConfig struct {
	// URL is a standard redis:// connection string
	URL string `mapstructure:"url" yaml:"url"`
}

// BreakerConfig configures the admission pipeline's circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold int `mapstructure:"failure_threshold" validate:"omitempty,min=1" yaml:"failure_threshold"`

	// RecoveryTimeout is how long the breaker stays open before a single probe is allowed
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout" yaml:"recovery_timeout"`
}

// ResponseCacheConfig configures the admission pipeline's response cache.
type ResponseCacheConfig struct {
	// TTL is how long a cached response remains valid
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// 1.0 = sample all traces, 0.5 = sample 50%, 0.0 = no sampling
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
// When enabled, CPU and memory profiles are continuously sent to a Pyroscope
// server for flame graph visualization and performance analysis.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CAPFABRIC_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first, or specify a custom one:\n"+
				"  <service>d start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with restricted permissions (owner read/write only) since config
	// files may hold connection strings.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CAPFABRIC_ prefix and underscores
	// Example: CAPFABRIC_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CAPFABRIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for time.Duration parsing.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "capfabric")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "capfabric")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
