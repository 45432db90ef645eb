package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaultSearchDirs = []string{".", "..", filepath.Join("..", "..")}

type options struct {
	configFile string
	envFile    string
	dirs       []string
}

// Option adjusts where LoadConfig looks for files.
type Option func(*options)

// WithConfigFile skips the search and reads path. A missing file is not
// an error; the config is then built from the environment alone.
func WithConfigFile(path string) Option { return func(o *options) { o.configFile = path } }

// WithEnvFile skips the search for the .env file.
func WithEnvFile(path string) Option { return func(o *options) { o.envFile = path } }

// WithSearchDirs replaces the directories searched for both files.
func WithSearchDirs(dirs ...string) Option { return func(o *options) { o.dirs = dirs } }

// LoadConfig fills cfg from the service's config.yml, then its .env file,
// then the process environment. An environment variable named after a key
// path with dots as underscores wins over the file: DATABASE_DSN sets
// database.dsn.
func LoadConfig(service string, cfg any, opts ...Option) error {
	o := options{dirs: defaultSearchDirs}
	for _, opt := range opts {
		opt(&o)
	}
	configs, envs := candidates(service, o.dirs)
	if o.configFile != "" {
		configs = []string{o.configFile}
	}
	if o.envFile != "" {
		envs = []string{o.envFile}
	}

	// godotenv never overrides variables that are already set.
	if path := firstExisting(envs); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path := firstExisting(configs); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", service, err)
	}
	return nil
}

// candidates lists config and env paths in search order.
func candidates(service string, dirs []string) (configs, envs []string) {
	for _, dir := range dirs {
		cmd := filepath.Join(dir, "cmd", service)
		configs = append(configs, filepath.Join(cmd, "config.yml"), filepath.Join(dir, "config.yml"))
		envs = append(envs, filepath.Join(cmd, ".env"), filepath.Join(dir, ".env."+service), filepath.Join(dir, ".env"))
	}
	return configs, envs
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
