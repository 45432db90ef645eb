package audio

import (
	"errors"
	"strings"
	"time"
)

// Config configures audio resolution.
type Config struct {
	// CachedPrefixes mark URLs that are already processed assets.
	CachedPrefixes []string `yaml:"cached_prefixes" mapstructure:"cached_prefixes"`
	// PreviewSeconds bounds free-tier audio. Zero disables clipping.
	PreviewSeconds int `yaml:"preview_seconds" mapstructure:"preview_seconds"`
	// CacheTTL is how long reuse hits stay in the local and redis caches.
	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	MaxBytes        int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	// KeyPrefix is the object path prefix in storage.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 6 * time.Hour
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 5 * time.Minute
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 512 << 20
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "audio"
	}
	c.KeyPrefix = strings.Trim(c.KeyPrefix, "/")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PreviewSeconds < 0 {
		return errors.New("audio.preview_seconds must not be negative")
	}
	return nil
}
