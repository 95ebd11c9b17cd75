package db

import (
	"testing"
	"time"
)

func TestPoolConfig(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/medtrack", 8, 2)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if cfg.MaxConns != 8 || cfg.MinConns != 2 {
		t.Errorf("expected 8/2 conns, got %d/%d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("unexpected idle time %s", cfg.MaxConnIdleTime)
	}
	if got := cfg.ConnConfig.RuntimeParams["timezone"]; got != "UTC" {
		t.Errorf("expected UTC session timezone, got %q", got)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "medtrack" {
		t.Errorf("expected application_name medtrack, got %q", got)
	}
}

func TestPoolConfig_KeepsExplicitApplicationName(t *testing.T) {
	cfg, err := poolConfig("postgres://u:p@localhost:5432/medtrack?application_name=worker", 4, 1)
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "worker" {
		t.Errorf("expected explicit application_name to win, got %q", got)
	}
}

func TestPoolConfig_InvalidURL(t *testing.T) {
	if _, err := poolConfig("://not a url", 4, 1); err == nil {
		t.Error("expected error for malformed database url")
	}
}
