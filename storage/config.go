package storage

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Config selects and configures the audio store. PublicBaseURL is required
// for local storage, which the HTTP server serves under /media; for S3 it
// overrides the bucket endpoint.
type Config struct {
	Provider      string      `yaml:"provider" mapstructure:"provider"`
	PublicBaseURL string      `yaml:"public_base_url" mapstructure:"public_base_url"`
	Local         LocalConfig `yaml:"local" mapstructure:"local"`
	S3            S3Config    `yaml:"s3" mapstructure:"s3"`
}

type LocalConfig struct {
	BasePath string `yaml:"base_path" mapstructure:"base_path"`
}

// S3Config falls back to the default AWS credential chain when either key
// is empty. Setting Endpoint targets an S3-compatible service and implies
// path-style addressing.
type S3Config struct {
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Local.BasePath == "" {
		c.Local.BasePath = "./data/audio"
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderLocal:
		if c.Local.BasePath == "" {
			errs = append(errs, errors.New("local.base_path is required"))
		}
		if c.PublicBaseURL == "" {
			errs = append(errs, errors.New("public_base_url is required for local storage"))
		}
	case ProviderS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported provider %q", c.Provider))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}
