package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("FEED_URL", "https://feed.example.com/latest")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.PollInterval)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("unexpected storage type %q", cfg.StorageType)
	}
	if cfg.FetchTimeout != 15*time.Second || cfg.PushTimeout != 10*time.Second {
		t.Fatalf("unexpected timeouts fetch=%v push=%v", cfg.FetchTimeout, cfg.PushTimeout)
	}
}

func TestLoadRequiresFeedURL(t *testing.T) {
	t.Setenv("FEED_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when feed_url missing")
	}
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("FEED_URL", "https://feed.example.com/latest")
	t.Setenv("POLL_INTERVAL", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero poll_interval")
	}
}

func TestLoadRejectsRelativeFeedURL(t *testing.T) {
	t.Setenv("FEED_URL", "/latest")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for relative feed_url")
	}
}
