package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoad_Defaults(t *testing.T) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{}),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.DataStore != DataStoreMongo {
		t.Fatalf("expected mongo data store, got %q", cfg.DataStore)
	}
	if cfg.Session.Store != SessionStoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.Session.Store)
	}
	if cfg.Session.SweepInterval != time.Minute {
		t.Fatalf("expected 1m sweep interval, got %v", cfg.Session.SweepInterval)
	}
	if !cfg.Session.RevokeOnPasswordChange {
		t.Fatalf("expected revoke on password change by default")
	}
	if cfg.Admin.Username != "admin" || cfg.Admin.Password != "admin123" {
		t.Fatalf("unexpected admin seed: %+v", cfg.Admin)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target: &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"SESSION_STORE":          "redis",
			"SESSION_SWEEP_INTERVAL": "30s",
			"REDIS_ADDR":             "cache:6379",
			"ENV":                    "production",
		}),
	}); err != nil {
		t.Fatalf("process: %v", err)
	}

	if cfg.Session.Store != SessionStoreRedis || cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Session.SweepInterval != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.Session.SweepInterval)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production")
	}
}

func TestValidate_RejectsUnknownStore(t *testing.T) {
	cfg := Config{DataStore: DataStoreMongo, Session: SessionConfig{Store: "memcached", CookieName: "s"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown store")
	}
}

func TestValidate_RejectsUnknownDataStore(t *testing.T) {
	cfg := Config{DataStore: "postgres", Session: SessionConfig{Store: SessionStoreMemory, CookieName: "s"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown data store")
	}
}
