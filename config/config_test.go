package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.StoreDriver != "json" {
		t.Fatalf("expected json store driver, got %q", cfg.StoreDriver)
	}
	if cfg.SerialBaud != 9600 {
		t.Fatalf("expected baud 9600, got %d", cfg.SerialBaud)
	}
	if cfg.SerialReadTimeout != time.Second {
		t.Fatalf("expected 1s read timeout, got %s", cfg.SerialReadTimeout)
	}
	if len(cfg.AdapterKeywords) != 3 || cfg.AdapterKeywords[2] != "USB Serial" {
		t.Fatalf("unexpected adapter keywords %v", cfg.AdapterKeywords)
	}
	if cfg.Addr() != "127.0.0.1:8080" {
		t.Fatalf("unexpected addr %q", cfg.Addr())
	}
}

func TestParseError(t *testing.T) {
	t.Setenv("SERIAL_BAUD", "fast")

	_, err := Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Parse(); err == nil {
		t.Fatal("expected driver validation error")
	}
}

func TestDefaultCatalog(t *testing.T) {
	t.Setenv("DEFAULT_STAGES", "س1, س2")
	t.Setenv("DEFAULT_DEPARTMENTS", "أ,ب,")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cat := cfg.DefaultCatalog()
	if len(cat) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(cat))
	}
	if got := cat["س2"]; len(got) != 2 || got[0] != "أ" || got[1] != "ب" {
		t.Fatalf("unexpected departments %v", got)
	}
	if parts := cat.Partitions(); len(parts) != 4 {
		t.Fatalf("expected 4 partitions, got %d", len(parts))
	}
}

func TestProdRequiresOperatorHash(t *testing.T) {
	t.Setenv("APP_ENV", "prod")

	if _, err := Parse(); err == nil {
		t.Fatal("expected missing hash error in prod")
	}

	t.Setenv("OPERATOR_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.IsProd() {
		t.Fatal("expected prod")
	}
}
