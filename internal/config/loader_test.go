package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// sameConfig treats nil and empty lists as equal.
func sameConfig(a, b Config) bool {
	if len(a.CORSOrigins) == 0 {
		a.CORSOrigins = nil
	}
	if len(b.CORSOrigins) == 0 {
		b.CORSOrigins = nil
	}
	if len(a.ICEServers) == 0 {
		a.ICEServers = nil
	}
	if len(b.ICEServers) == 0 {
		b.ICEServers = nil
	}
	return reflect.DeepEqual(a, b)
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, used, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if used != path {
		t.Fatalf("unexpected path %s", used)
	}
	if !sameConfig(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	again, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !sameConfig(again, cfg) {
		t.Fatalf("reload differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "addr: \":9000\"\nlog_level: debug\nshutdown_timeout: 2s\nsubscriber_buffer: 4\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CALLSTATE_ADDR", ":9100")
	t.Setenv("CALLSTATE_JWT_SECRET", "s3cret")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("env should win over file, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "debug" || cfg.ShutdownTimeout != 2*time.Second || cfg.SubscriberBuffer != 4 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if !cfg.AuthEnabled() {
		t.Fatal("expected auth enabled from env secret")
	}
	if cfg.MaxMessageBytes != Default().MaxMessageBytes {
		t.Fatalf("default lost: %d", cfg.MaxMessageBytes)
	}
}

func TestLoadRejectsBadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_format: xml\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(nil, path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", RateLimitPerMinute: 5})
	if cfg.Addr != ":1" || cfg.RateLimitPerMinute != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" || cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("zero overrides clobbered defaults: %+v", cfg)
	}
}

func TestLoadCORSOriginsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "cors_origins:\n  - http://ui.local\n  - http://localhost:3000\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://ui.local", "http://localhost:3000"}) {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}
