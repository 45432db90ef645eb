package server

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Config is the HTTP listener. MediaPath, when set, is the route under
// which locally stored audio is served.
type Config struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MediaPath    string        `yaml:"media_path" mapstructure:"media_path"`
}

func (c *Config) ApplyDefaults() {
	def := func(d *time.Duration, v time.Duration) {
		if *d == 0 {
			*d = v
		}
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	def(&c.ReadTimeout, 30*time.Second)
	def(&c.WriteTimeout, time.Minute)
	def(&c.IdleTimeout, 2*time.Minute)
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 16 << 20
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, errors.New("port out of range"))
	}
	if min(c.ReadTimeout, c.WriteTimeout, c.IdleTimeout) < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max_body_bytes must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
