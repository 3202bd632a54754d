package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.WompiBaseURL != "https://sandbox.wompi.co/v1" {
		t.Errorf("expected sandbox base url, got %q", cfg.WompiBaseURL)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("expected publishing disabled by default, got %v", cfg.KafkaBrokers)
	}
	if cfg.ReconcileInterval != time.Minute || cfg.StaleAfter != 15*time.Minute {
		t.Errorf("unexpected reconcile defaults: %v / %v", cfg.ReconcileInterval, cfg.StaleAfter)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("RECONCILE_INTERVAL", "30s")
	t.Setenv("RECONCILE_STALE_AFTER", "garbage")

	cfg := Load()

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("expected :9999, got %q", cfg.HTTPAddr)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.ReconcileInterval != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", cfg.ReconcileInterval)
	}
	if cfg.StaleAfter != 15*time.Minute {
		t.Errorf("expected invalid duration to fall back, got %v", cfg.StaleAfter)
	}
}
