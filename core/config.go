package core

import (
	"fmt"
	"strings"
	"time"
)

type SigningConfig struct {
	Key                 string `koanf:"key" mapstructure:"key"`
	ReplayWindowSeconds int    `koanf:"replay_window_seconds" mapstructure:"replay_window_seconds"`
}

func (c SigningConfig) ReplayWindow() time.Duration {
	if c.ReplayWindowSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.ReplayWindowSeconds) * time.Second
}

type OutboundConfig struct {
	BaseDomain         string `koanf:"base_domain" mapstructure:"base_domain"`
	Subdomain          string `koanf:"subdomain" mapstructure:"subdomain"`
	MaxReferences      int    `koanf:"max_references" mapstructure:"max_references"`
	SendTimeoutSeconds int    `koanf:"send_timeout_seconds" mapstructure:"send_timeout_seconds"`
}

func (c OutboundConfig) SendTimeout() time.Duration {
	if c.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

type RespondConfig struct {
	GenerateTimeoutSeconds int `koanf:"generate_timeout_seconds" mapstructure:"generate_timeout_seconds"`
	ContextWindow          int `koanf:"context_window" mapstructure:"context_window"`
}

func (c RespondConfig) GenerateTimeout() time.Duration {
	if c.GenerateTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

type RecoveryConfig struct {
	StuckAfterSeconds int `koanf:"stuck_after_seconds" mapstructure:"stuck_after_seconds"`
	BatchSize         int `koanf:"batch_size" mapstructure:"batch_size"`
}

func (c RecoveryConfig) StuckAfter() time.Duration {
	if c.StuckAfterSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.StuckAfterSeconds) * time.Second
}

type Config struct {
	ServiceName string         `koanf:"service_name" mapstructure:"service_name"`
	Signing     SigningConfig  `koanf:"signing" mapstructure:"signing"`
	Outbound    OutboundConfig `koanf:"outbound" mapstructure:"outbound"`
	Respond     RespondConfig  `koanf:"respond" mapstructure:"respond"`
	Recovery    RecoveryConfig `koanf:"recovery" mapstructure:"recovery"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "mailroom",
		Signing: SigningConfig{
			ReplayWindowSeconds: 300,
		},
		Outbound: OutboundConfig{
			MaxReferences:      10,
			SendTimeoutSeconds: 10,
		},
		Respond: RespondConfig{
			GenerateTimeoutSeconds: 10,
			ContextWindow:          5,
		},
		Recovery: RecoveryConfig{
			BatchSize: 50,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Outbound.MaxReferences < 0 {
		return fmt.Errorf("core: outbound.max_references must not be negative")
	}
	if c.Respond.ContextWindow < 0 {
		return fmt.Errorf("core: respond.context_window must not be negative")
	}
	return nil
}
