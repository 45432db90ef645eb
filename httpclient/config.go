package httpclient

import (
	"errors"
	"net/url"
	"time"

	"github.com/kbukum/scribe/resilience"
)

// Config is per client. Headers go on every request unless the request
// sets the same header. MaxBodyBytes caps buffered replies only.
type Config struct {
	BaseURL      string            `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	MaxBodyBytes int64             `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`

	Auth   *AuthConfig        `yaml:"-" mapstructure:"-"`
	Policy *resilience.Policy `yaml:"-" mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 32 << 20
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("httpclient: timeout must be positive")
	}
	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
			return errors.New("httpclient: base_url must be an absolute URL")
		}
	}
	return nil
}
