package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

service:
  name: registry
  listen_address: "0.0.0.0:9443"

auth:
  issuer: "https://issuer.example.com"
  audience: "registry"

tls:
  certs_dir: "/etc/capfabric/certs"

metrics:
  enabled: true
  port: 9091
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("Expected metrics port 9091, got %d", cfg.Metrics.Port)
	}
	if cfg.Auth.JWKSTTL != 3600*time.Second {
		t.Errorf("Expected default jwks_ttl 3600s, got %v", cfg.Auth.JWKSTTL)
	}
	if cfg.Breaker.FailureThreshold != 3 {
		t.Errorf("Expected default breaker threshold 3, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Cache.TTL != 60*time.Second {
		t.Errorf("Expected default response cache TTL 60s, got %v", cfg.Cache.TTL)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config, allowing
	// quick local testing without a YAML file on disk.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Auth.JWKSTTL != 3600*time.Second {
		t.Errorf("Expected default jwks_ttl 3600s, got %v", cfg.Auth.JWKSTTL)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Auth.ClockSkew != 60*time.Second {
		t.Errorf("Expected default clock skew 60s, got %v", cfg.Auth.ClockSkew)
	}
	if cfg.Breaker.RecoveryTimeout != 30*time.Second {
		t.Errorf("Expected default breaker recovery timeout 30s, got %v", cfg.Breaker.RecoveryTimeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "capfabric" {
		t.Errorf("Expected directory name 'capfabric', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("CAPFABRIC_LOGGING_LEVEL", "ERROR")
	_ = os.Setenv("CAPFABRIC_METRICS_PORT", "9095")
	defer func() {
		_ = os.Unsetenv("CAPFABRIC_LOGGING_LEVEL")
		_ = os.Unsetenv("CAPFABRIC_METRICS_PORT")
	}()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

service:
  name: registry
  listen_address: "0.0.0.0:9443"

auth:
  issuer: "https://issuer.example.com"
  audience: "registry"

tls:
  certs_dir: "/etc/capfabric/certs"

metrics:
  enabled: true
  port: 9091
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Metrics.Port != 9095 {
		t.Errorf("Expected metrics port 9095 from env var, got %d", cfg.Metrics.Port)
	}
}
