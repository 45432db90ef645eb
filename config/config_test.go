package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestServiceConfig_ApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "scribe"}
	cfg.ApplyDefaults()

	if cfg.Environment != "development" {
		t.Errorf("expected development, got %q", cfg.Environment)
	}
	if !cfg.Debug {
		t.Error("expected Debug=true in development")
	}
	if cfg.Logging.ServiceName != "scribe" {
		t.Errorf("expected logging service name to follow Name, got %q", cfg.Logging.ServiceName)
	}
}

func TestServiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		errMsg  string
		wantErr bool
	}{
		{"valid", ServiceConfig{Name: "scribe", Environment: "production"}, "", false},
		{"missing name", ServiceConfig{Environment: "production"}, "name is required", true},
		{"bad env", ServiceConfig{Name: "scribe", Environment: "qa"}, "is not one of", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
					t.Fatalf("expected error containing %q, got %v", tc.errMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Callback      struct {
		BaseURL       string `mapstructure:"base_url"`
		SigningSecret string `mapstructure:"signing_secret"`
	} `mapstructure:"callback"`
}

func TestLoadConfig_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yaml := `
name: scribe
environment: staging
callback:
  base_url: https://hooks.example.com
  signing_secret: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CALLBACK_SIGNING_SECRET", "from-env")

	var cfg testConfig
	if err := LoadConfig("scribe", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "scribe" || cfg.Environment != "staging" {
		t.Errorf("unexpected base config: %+v", cfg.ServiceConfig)
	}
	if cfg.Callback.BaseURL != "https://hooks.example.com" {
		t.Errorf("expected base url from file, got %q", cfg.Callback.BaseURL)
	}
	if cfg.Callback.SigningSecret != "from-env" {
		t.Errorf("expected env override, got %q", cfg.Callback.SigningSecret)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	var cfg testConfig
	if err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml")); err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfig_SearchOrder(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("cmd/scribe/config.yml", "name: from-cmd\n")
	write("config.yml", "name: from-root\n")

	var cfg testConfig
	if err := LoadConfig("scribe", &cfg, WithSearchDirs(root)); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "from-cmd" {
		t.Errorf("expected the cmd config to win, got %q", cfg.Name)
	}
}

func TestLoadConfig_EnvWithoutFileKey(t *testing.T) {
	t.Setenv("CALLBACK_BASE_URL", "https://env.example.com")
	var cfg testConfig
	if err := LoadConfig("scribe", &cfg, WithSearchDirs(t.TempDir())); err != nil {
		t.Fatal(err)
	}
	if cfg.Callback.BaseURL != "https://env.example.com" {
		t.Errorf("base url = %q", cfg.Callback.BaseURL)
	}
}

func TestCandidates(t *testing.T) {
	configs, envs := candidates("scribe", []string{"."})
	if !slices.Equal(configs, []string{filepath.Join("cmd", "scribe", "config.yml"), "config.yml"}) {
		t.Errorf("configs = %v", configs)
	}
	if envs[len(envs)-1] != ".env" {
		t.Errorf("envs = %v", envs)
	}
}
