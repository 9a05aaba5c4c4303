package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  port: "9090"
  log_level: debug
  content_window: 4
ops:
  enabled: true
  port: "9091"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Server.Port, "9090")
	}
	if cfg.Server.ContentWindow != 4 {
		t.Errorf("ContentWindow = %d, want 4", cfg.Server.ContentWindow)
	}
	if got := cfg.GetNormalizedLogLevel(); got != "debug" {
		t.Errorf("GetNormalizedLogLevel() = %q, want %q", got, "debug")
	}
	if !cfg.Ops.Enabled || cfg.Ops.Port != "9091" {
		t.Errorf("Ops = %+v, want enabled on 9091", cfg.Ops)
	}
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server: {}\n")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Server.Port != defaultPort {
		t.Errorf("Port = %q, want default %q", cfg.Server.Port, defaultPort)
	}
	if cfg.Server.ContentWindow != defaultContentWindow {
		t.Errorf("ContentWindow = %d, want default %d", cfg.Server.ContentWindow, defaultContentWindow)
	}
}

func TestLoadFromFileEnvSubstitution(t *testing.T) {
	t.Setenv("STRAND_TEST_PORT", "7070")

	path := writeConfig(t, "config.yaml", `
server:
  port: "${STRAND_TEST_PORT:-8080}"
  environment: "${STRAND_TEST_ENV:-staging}"
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Port = %q, want env value %q", cfg.Server.Port, "7070")
	}
	if cfg.Server.Environment != "staging" {
		t.Errorf("Environment = %q, want default %q", cfg.Server.Environment, "staging")
	}
}

func TestLoadFromFileRejectsBadPaths(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"traversal", "../secrets.yaml"},
		{"wrong extension", "config.json"},
		{"missing file", filepath.Join(os.TempDir(), "does-not-exist-strand.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromFile(tt.path); err == nil {
				t.Errorf("LoadFromFile(%q) = nil error, want failure", tt.path)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "negative content window",
			cfg: func() Config {
				c := Config{}
				c.Server.ContentWindow = -1
				return c
			}(),
			wantErr: "must not be negative",
		},
		{
			name: "ops enabled without port",
			cfg: func() Config {
				c := Config{}
				c.Ops.Enabled = true
				return c
			}(),
			wantErr: "without a port",
		},
		{
			name: "ops port collides",
			cfg: func() Config {
				c := Config{}
				c.Server.Port = "8080"
				c.Ops.Enabled = true
				c.Ops.Port = "8080"
				return c
			}(),
			wantErr: "collides",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
