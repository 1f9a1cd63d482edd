package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	FeedURL             string        `mapstructure:"feed_url"`
	SiteURL             string        `mapstructure:"site_url"`
	IconURL             string        `mapstructure:"icon_url"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollInterval        time.Duration `mapstructure:"-"`
	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`

	PushTimeoutSeconds int64         `mapstructure:"push_timeout_seconds"`
	PushTimeout        time.Duration `mapstructure:"-"`
	PushTTLSeconds     int           `mapstructure:"push_ttl_seconds"`
	VAPIDKeysFile      string        `mapstructure:"vapid_keys_file"`
	VAPIDPublicKey     string        `mapstructure:"vapid_public_key" json:"-"`
	VAPIDPrivateKey    string        `mapstructure:"vapid_private_key" json:"-"`
	VAPIDSubject       string        `mapstructure:"vapid_subject"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	HTTPAddr  string `mapstructure:"http_addr"`
	SinksFile string `mapstructure:"sinks_file"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "wiredove-notifier")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("feed_url", "")
	v.SetDefault("site_url", "https://wiredove.net/")
	v.SetDefault("icon_url", "")
	v.SetDefault("poll_interval", 60) // seconds
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("push_timeout_seconds", 10)
	v.SetDefault("push_ttl_seconds", 3600)
	v.SetDefault("vapid_keys_file", "./data/vapid.json")
	v.SetDefault("vapid_public_key", "")
	v.SetDefault("vapid_private_key", "")
	v.SetDefault("vapid_subject", "mailto:admin@wiredove.net")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/notifier.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("sinks_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	cfg.FeedURL = strings.TrimSpace(cfg.FeedURL)
	if cfg.FeedURL == "" {
		return fmt.Errorf("feed_url is required")
	}
	if u, err := url.Parse(cfg.FeedURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid feed_url %q", cfg.FeedURL)
	}

	cfg.SiteURL = strings.TrimSpace(cfg.SiteURL)
	if cfg.SiteURL == "" {
		return fmt.Errorf("site_url is required")
	}

	if cfg.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	if cfg.PushTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid push_timeout_seconds (must be positive seconds)")
	}
	cfg.PushTimeout = time.Duration(cfg.PushTimeoutSeconds) * time.Second

	if cfg.PushTTLSeconds < 0 {
		return fmt.Errorf("invalid push_ttl_seconds (must not be negative)")
	}

	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	cfg.VAPIDSubject = strings.TrimSpace(cfg.VAPIDSubject)
	cfg.SinksFile = strings.TrimSpace(cfg.SinksFile)
	return nil
}
