package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewConfigWithJSON(t *testing.T) {
	configPath := writeConfigFile(t, `{
		"server_address": "json:8080",
		"database_dsn": "postgres://json",
		"fetch_timeout": "45s",
		"strict_guard": true,
		"max_concurrent_fetches": 8,
		"rate_limit": 2,
		"rate_burst": 5
	}`)
	resetConfigEnv(t, "-c", configPath)

	cfg := NewConfig()

	if cfg.ServerAddress != "json:8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, "json:8080")
	}
	if cfg.DatabaseDSN != "postgres://json" {
		t.Errorf("NewConfig() DatabaseDSN = %v, want %v", cfg.DatabaseDSN, "postgres://json")
	}
	if cfg.FetchTimeout != 45*time.Second {
		t.Errorf("NewConfig() FetchTimeout = %v, want %v", cfg.FetchTimeout, 45*time.Second)
	}
	if !cfg.StrictGuard {
		t.Errorf("NewConfig() StrictGuard = %v, want true", cfg.StrictGuard)
	}
	if cfg.MaxConcurrentFetches != 8 {
		t.Errorf("NewConfig() MaxConcurrentFetches = %v, want %v", cfg.MaxConcurrentFetches, 8)
	}
	if cfg.RateLimit != 2 || cfg.RateBurst != 5 {
		t.Errorf("NewConfig() rate = %v/%v, want 2/5", cfg.RateLimit, cfg.RateBurst)
	}
}

func TestNewConfigJSONFromEnv(t *testing.T) {
	configPath := writeConfigFile(t, `{"grpc_address": ":9999"}`)
	resetConfigEnv(t)
	t.Setenv("CONFIG", configPath)

	cfg := NewConfig()

	if cfg.GRPCAddress != ":9999" {
		t.Errorf("NewConfig() GRPCAddress = %v, want %v", cfg.GRPCAddress, ":9999")
	}
}

func TestNewConfigJSONPriority(t *testing.T) {
	// JSON says "json:8080", the flag "flag:8080", the environment "env:8080".
	// Env wins for the address; the flag beats JSON for the timeout.
	configPath := writeConfigFile(t, `{"server_address": "json:8080", "fetch_timeout": "45s"}`)
	resetConfigEnv(t, "-c", configPath, "-a", "flag:8080", "-t", "3s")
	t.Setenv("SERVER_ADDRESS", "env:8080")

	cfg := NewConfig()

	if cfg.ServerAddress != "env:8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, "env:8080")
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("NewConfig() FetchTimeout = %v, want %v", cfg.FetchTimeout, 3*time.Second)
	}
}

func TestNewConfigBrokenJSONKeepsDefaults(t *testing.T) {
	configPath := writeConfigFile(t, `{"server_address": `)
	resetConfigEnv(t, "-c", configPath)

	cfg := NewConfig()

	if cfg.ServerAddress != ":8080" {
		t.Errorf("NewConfig() ServerAddress = %v, want %v", cfg.ServerAddress, ":8080")
	}
}
