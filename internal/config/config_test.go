package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Fatalf("backend = %q, want memory default", cfg.Store.Backend)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", cfg.App.Addr())
	}
	if cfg.Matching.Tick() != 5*time.Second {
		t.Fatalf("tick = %v", cfg.Matching.Tick())
	}
	if len(cfg.Crisis.Phrases) == 0 {
		t.Fatal("no default crisis phrases")
	}
	if cfg.Crisis.HelplinePhone == "" {
		t.Fatal("no default helpline phone")
	}
	if cfg.Responder.Enabled {
		t.Fatal("responder enabled by default")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted unknown STORE_BACKEND")
	}
}

func TestLoadNormalizesBackendCase(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != "redis" {
		t.Fatalf("backend = %q", cfg.Store.Backend)
	}
}

func TestCrisisPhrasesFromEnv(t *testing.T) {
	t.Setenv("CRISIS_PHRASES", "phrase one, phrase two , ,phrase three")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"phrase one", "phrase two", "phrase three"}
	if len(cfg.Crisis.Phrases) != len(want) {
		t.Fatalf("phrases = %v", cfg.Crisis.Phrases)
	}
	for i := range want {
		if cfg.Crisis.Phrases[i] != want[i] {
			t.Fatalf("phrases = %v, want %v", cfg.Crisis.Phrases, want)
		}
	}
}

func TestDurationFallbacks(t *testing.T) {
	matching := MatchingConfig{TickSeconds: 0}
	if matching.Tick() != 5*time.Second {
		t.Fatalf("Tick fallback = %v", matching.Tick())
	}
	responder := ResponderConfig{DelaySeconds: -1}
	if responder.Delay() != 3*time.Second {
		t.Fatalf("Delay fallback = %v", responder.Delay())
	}
	app := AppConfig{RequestTimeoutSeconds: 0}
	if app.RequestTimeout() != 0 {
		t.Fatalf("RequestTimeout fallback = %v", app.RequestTimeout())
	}
}
