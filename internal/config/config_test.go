package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("file merges over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		body := `
mode = "collect"
log_level = "debug"

[matcher]
threshold = 0.8

[pipeline]
collect_interval = "30m"

[kalshi]
enabled = true
`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Mode != "collect" {
			t.Fatalf("Mode = %q", cfg.Mode)
		}
		if cfg.Matcher.Threshold != 0.8 {
			t.Fatalf("Threshold = %v", cfg.Matcher.Threshold)
		}
		if cfg.Pipeline.CollectInterval.Duration != 30*time.Minute {
			t.Fatalf("CollectInterval = %v", cfg.Pipeline.CollectInterval.Duration)
		}
		// Untouched sections keep their defaults.
		if cfg.Redis.Addr != "localhost:6379" {
			t.Fatalf("Redis.Addr = %q", cfg.Redis.Addr)
		}
		if !cfg.Kalshi.Enabled || cfg.Kalshi.BaseURL == "" {
			t.Fatalf("kalshi section = %+v", cfg.Kalshi)
		}
	})

	t.Run("env overrides win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte(`mode = "collect"`), 0o644); err != nil {
			t.Fatal(err)
		}

		t.Setenv("MARKETFUSE_MODE", "server")
		t.Setenv("MARKETFUSE_MATCHER_THRESHOLD", "0.9")
		t.Setenv("MARKETFUSE_REDIS_ADDR", "redis:6380")

		cfg, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Mode != "server" {
			t.Fatalf("Mode = %q", cfg.Mode)
		}
		if cfg.Matcher.Threshold != 0.9 {
			t.Fatalf("Threshold = %v", cfg.Matcher.Threshold)
		}
		if cfg.Redis.Addr != "redis:6380" {
			t.Fatalf("Redis.Addr = %q", cfg.Redis.Addr)
		}
	})

	t.Run("missing file errors", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestValidate(t *testing.T) {
	t.Run("collects every problem", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "bogus"
		cfg.Matcher.Threshold = 2.0
		cfg.Redis.Addr = ""
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error")
		}
		for _, want := range []string{"unknown mode", "threshold", "redis: addr"} {
			if !strings.Contains(err.Error(), want) {
				t.Fatalf("error missing %q:\n%v", want, err)
			}
		}
	})

	t.Run("unknown singleton policy named", func(t *testing.T) {
		cfg := Defaults()
		cfg.Matcher.SingletonPolicy = "maybe"
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "singleton_policy") {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("embeddings need an api key", func(t *testing.T) {
		cfg := Defaults()
		cfg.Embeddings.Enabled = true
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "embeddings: api_key") {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("all sites disabled rejected", func(t *testing.T) {
		cfg := Defaults()
		cfg.Polymarket.Enabled = false
		cfg.Manifold.Enabled = false
		cfg.PredictIt.Enabled = false
		cfg.Kalshi.Enabled = false
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "at least one site") {
			t.Fatalf("got %v", err)
		}
	})
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Embeddings.ApiKey = "sk-123"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	if red.Database.Password != "***" || red.Embeddings.ApiKey != "***" || red.Notify.TelegramToken != "***" {
		t.Fatalf("secrets leaked: %+v", red)
	}
	if cfg.Database.Password != "hunter2" {
		t.Fatal("original mutated")
	}
	if red.Redis.Password != "" {
		t.Fatal("empty secret must stay empty")
	}
}
