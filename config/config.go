package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed by value. Nothing mutates it
// after Load returns.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	HTTPAddr    string

	// OfferExpiryWindow is added to offer_sent_at to derive offer_expires_at.
	OfferExpiryWindow time.Duration
	// SweepInterval is the pause between reminder/expiry sweeps.
	SweepInterval time.Duration
	// EscalationThresholds must be strictly ascending; crossing threshold N
	// (1-based) makes escalation level N due.
	EscalationThresholds []time.Duration
	// ValidationTimeout bounds each cross-validation run.
	ValidationTimeout time.Duration

	// Channels toggles delivery per channel name.
	Channels       map[string]bool
	DefaultChannel string
}

// Default returns the shipped configuration: 7-day offer window, daily sweep,
// escalation at 3/5/7 days.
func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		OfferExpiryWindow: 7 * 24 * time.Hour,
		SweepInterval:     24 * time.Hour,
		EscalationThresholds: []time.Duration{
			3 * 24 * time.Hour,
			5 * 24 * time.Hour,
			7 * 24 * time.Hour,
		},
		ValidationTimeout: 5 * time.Second,
		Channels: map[string]bool{
			"email":     true,
			"chatbot":   true,
			"messenger": true,
			"inapp":     true,
		},
		DefaultChannel: "email",
	}
}

type fileConfig struct {
	DatabaseURL          string          `yaml:"database_url"`
	JWTSecret            string          `yaml:"jwt_secret"`
	HTTPAddr             string          `yaml:"http_addr"`
	OfferExpiryWindow    string          `yaml:"offer_expiry_window"`
	SweepInterval        string          `yaml:"sweep_interval"`
	EscalationThresholds []string        `yaml:"escalation_thresholds"`
	ValidationTimeout    string          `yaml:"validation_timeout"`
	Channels             map[string]bool `yaml:"channels"`
	DefaultChannel       string          `yaml:"default_channel"`
}

// Load reads the YAML file at path (optional; empty path keeps defaults) and
// applies DATABASE_URL / JWT_SECRET environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := cfg.apply(fc); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(fc fileConfig) error {
	if fc.DatabaseURL != "" {
		c.DatabaseURL = fc.DatabaseURL
	}
	if fc.JWTSecret != "" {
		c.JWTSecret = fc.JWTSecret
	}
	if fc.HTTPAddr != "" {
		c.HTTPAddr = fc.HTTPAddr
	}
	if fc.OfferExpiryWindow != "" {
		d, err := time.ParseDuration(fc.OfferExpiryWindow)
		if err != nil {
			return fmt.Errorf("config: offer_expiry_window: %w", err)
		}
		c.OfferExpiryWindow = d
	}
	if fc.SweepInterval != "" {
		d, err := time.ParseDuration(fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("config: sweep_interval: %w", err)
		}
		c.SweepInterval = d
	}
	if len(fc.EscalationThresholds) > 0 {
		thresholds := make([]time.Duration, 0, len(fc.EscalationThresholds))
		for _, raw := range fc.EscalationThresholds {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("config: escalation_thresholds: %w", err)
			}
			thresholds = append(thresholds, d)
		}
		c.EscalationThresholds = thresholds
	}
	if fc.ValidationTimeout != "" {
		d, err := time.ParseDuration(fc.ValidationTimeout)
		if err != nil {
			return fmt.Errorf("config: validation_timeout: %w", err)
		}
		c.ValidationTimeout = d
	}
	if fc.Channels != nil {
		c.Channels = fc.Channels
	}
	if fc.DefaultChannel != "" {
		c.DefaultChannel = fc.DefaultChannel
	}
	return nil
}

func (c Config) validate() error {
	if c.OfferExpiryWindow <= 0 {
		return fmt.Errorf("config: offer_expiry_window must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: sweep_interval must be positive")
	}
	if len(c.EscalationThresholds) == 0 {
		return fmt.Errorf("config: at least one escalation threshold required")
	}
	prev := time.Duration(0)
	for i, th := range c.EscalationThresholds {
		if th <= prev {
			return fmt.Errorf("config: escalation thresholds must be strictly ascending (index %d)", i)
		}
		prev = th
	}
	if c.ValidationTimeout <= 0 {
		return fmt.Errorf("config: validation_timeout must be positive")
	}
	if !c.Channels[c.DefaultChannel] {
		return fmt.Errorf("config: default channel %q is not enabled", c.DefaultChannel)
	}
	return nil
}
