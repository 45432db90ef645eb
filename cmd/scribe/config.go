package main

import (
	"errors"
	"fmt"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/config"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/dispatch"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/ledger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/supplier"
)

// Config is the complete scribe configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config              `yaml:"server" mapstructure:"server"`
	Database      database.Config            `yaml:"database" mapstructure:"database"`
	Redis         redis.Config               `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config               `yaml:"kafka" mapstructure:"kafka"`
	Storage       storage.Config             `yaml:"storage" mapstructure:"storage"`
	Auth          jwt.Config                 `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`
	Suppliers     map[string]supplier.Config `yaml:"suppliers" mapstructure:"suppliers"`
	Dispatch      dispatch.Config            `yaml:"dispatch" mapstructure:"dispatch"`
	Callback      ingest.Config              `yaml:"callback" mapstructure:"callback"`
	Audio         audio.Config               `yaml:"audio" mapstructure:"audio"`
	Ledger        LedgerConfig               `yaml:"ledger" mapstructure:"ledger"`
	Queue         queue.Config               `yaml:"queue" mapstructure:"queue"`
	RateLimit     middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LedgerConfig holds the billing plans per tier.
type LedgerConfig struct {
	Plans ledger.StaticPlans `yaml:"plans" mapstructure:"plans"`
}

// ApplyDefaults installs the free and paid plans when none are configured.
func (c *LedgerConfig) ApplyDefaults() {
	if len(c.Plans) > 0 {
		return
	}
	c.Plans = ledger.StaticPlans{
		"free": ledger.FreePlan,
		"paid": {Tier: "paid", Paid: true, SubscriptionType: "paid", MonthlyMinutes: 600, HighAccuracyMinutes: 120},
	}
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Observability.ApplyDefaults()
	for name, sc := range c.Suppliers {
		sc.ApplyDefaults()
		c.Suppliers[name] = sc
	}
	c.Dispatch.ApplyDefaults()
	c.Callback.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.Ledger.ApplyDefaults()
	c.Queue.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"storage", c.Storage.Validate},
		{"auth", c.Auth.Validate},
		{"observability", c.Observability.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"callback", c.Callback.Validate},
		{"audio", c.Audio.Validate},
		{"queue", c.Queue.Validate},
		{"rate_limit", c.RateLimit.Validate},
	}
	var errs []error
	for _, s := range sections {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	for name, sc := range c.Suppliers {
		if err := sc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("suppliers.%s: %w", name, err))
		}
	}
	if c.IsProduction() && c.Callback.StrictSignatures {
		for name, sc := range c.Suppliers {
			if sc.Enabled && sc.WebhookSecret == "" {
				errs = append(errs, fmt.Errorf("suppliers.%s.webhook_secret is required with strict signatures", name))
			}
		}
	}
	return errors.Join(errs...)
}
