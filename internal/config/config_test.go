package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoad_WithExplicitFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "test.toml")

	content := `
[server]
addr = "127.0.0.1:9090"
log_level = "debug"
data_dir = "` + dir + `"

[auth]
enabled = true
token = "s3cret"

[cache]
enabled = true
size = 256
ttl_seconds = 60

[store]
enabled = true
retention_days = 7
`
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:9090", cfg.Server.Addr)
	}
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("Server.LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Token != "s3cret" {
		t.Errorf("Auth = %+v, want enabled with token s3cret", cfg.Auth)
	}
	if cfg.Cache.Size != 256 {
		t.Errorf("Cache.Size = %d, want 256", cfg.Cache.Size)
	}
	if !cfg.Store.Enabled || cfg.Store.RetentionDays != 7 {
		t.Errorf("Store = %+v, want enabled with 7-day retention", cfg.Store)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MINIFY_SERVER_ADDR", "0.0.0.0:9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9999" {
		t.Errorf("Server.Addr = %q, want env override 0.0.0.0:9999", cfg.Server.Addr)
	}
}

func TestGet_ReturnsDefaultsBeforeLoad(t *testing.T) {
	configPtr.Store(nil)
	cfg := Get()
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Get() before any Load should return defaults, got addr %q", cfg.Server.Addr)
	}
}

func TestInitConfig_WritesFileOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minify.toml")

	if err := InitConfig(path); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	data1, _ := os.ReadFile(path)
	if err := InitConfig(path); err != nil {
		t.Fatalf("second InitConfig: %v", err)
	}
	data2, _ := os.ReadFile(path)
	if string(data1) != string(data2) {
		t.Error("InitConfig should not overwrite an existing file")
	}
}
