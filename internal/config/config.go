// Package config loads service settings from an optional YAML file with
// environment variable overrides. Environment always wins, so deployments can
// share a base file and tweak per-instance values.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings.
type Config struct {
	// Positional snapshot feed.
	FeedBaseURL         string        `yaml:"feed_base_url"`
	CurrentFetchTimeout time.Duration `yaml:"current_fetch_timeout"`
	HistoryFetchTimeout time.Duration `yaml:"history_fetch_timeout"`
	FeedRateLimit       float64       `yaml:"feed_rate_limit"` // requests per second
	FeedRateBurst       int           `yaml:"feed_rate_burst"`

	// Hazard alert feed. ProxyURL is optional; when set it is tried before
	// the direct URL.
	AlertsProxyURL     string        `yaml:"alerts_proxy_url"`
	AlertsDirectURL    string        `yaml:"alerts_direct_url"`
	AlertsFetchTimeout time.Duration `yaml:"alerts_fetch_timeout"`

	// Refresh cycles.
	TrackRefreshInterval time.Duration `yaml:"track_refresh_interval"`
	AlertRefreshInterval time.Duration `yaml:"alert_refresh_interval"`

	// Serving and shutdown.
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Optional Kafka summary sink; disabled when no brokers are configured.
	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaSummaryTopic string   `yaml:"kafka_summary_topic"`

	// Logging.
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment variables, then validation.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		FeedBaseURL:         "http://localhost:8081/snapshots",
		CurrentFetchTimeout: 20 * time.Second,
		HistoryFetchTimeout: 10 * time.Second,
		FeedRateLimit:       10,
		FeedRateBurst:       24,

		AlertsDirectURL:    "https://api.weather.gov/alerts/active",
		AlertsFetchTimeout: 10 * time.Second,

		TrackRefreshInterval: time.Hour,
		AlertRefreshInterval: 15 * time.Minute,

		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,

		KafkaSummaryTopic: "balloon-track-summaries",

		LogLevel:  "info",
		LogFormat: "json",
	}
}

func (c *Config) applyEnv() error {
	setString(&c.FeedBaseURL, "FEED_BASE_URL")
	setString(&c.AlertsProxyURL, "ALERTS_PROXY_URL")
	setString(&c.AlertsDirectURL, "ALERTS_DIRECT_URL")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.KafkaSummaryTopic, "KAFKA_SUMMARY_TOPIC")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.KafkaBrokers = splitAndTrim(v)
	}

	durations := []struct {
		dst *time.Duration
		env string
	}{
		{&c.CurrentFetchTimeout, "CURRENT_FETCH_TIMEOUT"},
		{&c.HistoryFetchTimeout, "HISTORY_FETCH_TIMEOUT"},
		{&c.AlertsFetchTimeout, "ALERTS_FETCH_TIMEOUT"},
		{&c.TrackRefreshInterval, "TRACK_REFRESH_INTERVAL"},
		{&c.AlertRefreshInterval, "ALERT_REFRESH_INTERVAL"},
		{&c.ShutdownTimeout, "SHUTDOWN_TIMEOUT"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.env); err != nil {
			return err
		}
	}

	if v := os.Getenv("FEED_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid FEED_RATE_LIMIT %q: %w", v, err)
		}
		c.FeedRateLimit = f
	}
	if v := os.Getenv("FEED_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FEED_RATE_BURST %q: %w", v, err)
		}
		c.FeedRateBurst = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.FeedBaseURL == "" {
		return errors.New("feed_base_url is required")
	}
	if c.AlertsDirectURL == "" {
		return errors.New("alerts_direct_url is required")
	}
	if c.CurrentFetchTimeout <= 0 || c.HistoryFetchTimeout <= 0 || c.AlertsFetchTimeout <= 0 {
		return errors.New("fetch timeouts must be positive")
	}
	if c.TrackRefreshInterval <= 0 || c.AlertRefreshInterval <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if c.FeedRateLimit <= 0 || c.FeedRateBurst < 1 {
		return errors.New("feed rate limit must be positive with burst >= 1")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSummaryTopic == "" {
		return errors.New("kafka_summary_topic is required when kafka_brokers is set")
	}
	return nil
}

// KafkaEnabled reports whether the summary sink should be wired up.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s %q", env, v)
	}
	*dst = d
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
