package logger

import (
	"errors"
	"fmt"
	"slices"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Config selects level, encoding and destination.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
	// File is used when Output is "file".
	File FileConfig `yaml:"file" mapstructure:"file"`
}

// FileConfig controls lumberjack rotation.
type FileConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

var (
	levels  = []string{"trace", "debug", "info", "warn", "error"}
	formats = []string{FormatJSON, FormatConsole}
	outputs = []string{OutputStdout, OutputStderr, OutputFile}
)

func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = OutputStdout
	}
	f := &c.File
	if f.Path == "" {
		name := c.ServiceName
		if name == "" {
			name = "service"
		}
		f.Path = "logs/" + name + ".log"
	}
	if f.MaxSizeMB == 0 {
		f.MaxSizeMB = 100
	}
	if f.MaxBackups == 0 {
		f.MaxBackups = 3
	}
	if f.MaxAgeDays == 0 {
		f.MaxAgeDays = 28
	}
}

func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s %q is not one of %v", field, value, allowed))
		}
	}
	check("level", c.Level, levels)
	check("format", c.Format, formats)
	check("output", c.Output, outputs)
	return errors.Join(errs...)
}
