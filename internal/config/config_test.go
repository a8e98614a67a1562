package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "SESSION_TTL", "REAPER_INTERVAL", "REAPER_ENABLED", "LEXICON_PATH", "MAX_VOICE_BYTES", "CORS_ALLOWED_ORIGINS", "DEFAULT_USER_ID"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.DefaultUserID != "anonymous" {
		t.Fatalf("unexpected default user: %s", cfg.Server.DefaultUserID)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Session.TTL != time.Hour || cfg.Session.ReaperInterval != time.Hour {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if !cfg.Session.ReaperEnabled {
		t.Fatal("expected reaper enabled by default")
	}
	if cfg.Voice.MaxBytes != 10<<20 {
		t.Fatalf("unexpected voice limit: %d", cfg.Voice.MaxBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REAPER_INTERVAL", "5m")
	t.Setenv("REAPER_ENABLED", "false")
	t.Setenv("LEXICON_PATH", " /etc/haven/lexicon.toml ")
	t.Setenv("MAX_VOICE_BYTES", "2048")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Session.TTL != 30*time.Minute || cfg.Session.ReaperInterval != 5*time.Minute {
		t.Fatalf("unexpected session timings: %+v", cfg.Session)
	}
	if cfg.Session.ReaperEnabled {
		t.Fatal("expected reaper disabled")
	}
	if cfg.Session.LexiconPath != "/etc/haven/lexicon.toml" {
		t.Fatalf("unexpected lexicon path: %q", cfg.Session.LexiconPath)
	}
	if cfg.Voice.MaxBytes != 2048 {
		t.Fatalf("unexpected voice limit: %d", cfg.Voice.MaxBytes)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":            "80 80",
		"SESSION_TTL":     "soon",
		"REAPER_INTERVAL": "-1m",
		"REAPER_ENABLED":  "maybe",
		"MAX_VOICE_BYTES": "0",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}
