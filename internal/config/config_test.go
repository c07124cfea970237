package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := `http: ":8080"
log_level: debug
rate_limits:
  write_per_min: 5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP != ":8080" || cfg.LogLevel != "debug" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.RateLimits.WritePerMin != 5 {
		t.Errorf("WritePerMin = %d, want 5", cfg.RateLimits.WritePerMin)
	}
	// Unset keys keep their default.
	if cfg.RateLimits.ReadPerMin != Default().RateLimits.ReadPerMin {
		t.Errorf("ReadPerMin = %d, want default", cfg.RateLimits.ReadPerMin)
	}
	if cfg.PayloadField != "PNG_IMAGE" {
		t.Errorf("PayloadField = %q", cfg.PayloadField)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "htp: \":80\"\n"},
		{"bad type", "max_request_body_bytes: lots\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != Default() {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestValidate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no port", func(c *Config) { c.HTTP = "localhost" }, "http:"},
		{"port zero", func(c *Config) { c.HTTP = ":0" }, "out of range"},
		{"port too big", func(c *Config) { c.HTTP = ":65536" }, "out of range"},
		{"port not a number", func(c *Config) { c.HTTP = ":http" }, "invalid port"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"static dir missing", func(c *Config) { c.StaticDir = filepath.Join(file, "x") }, "static_dir"},
		{"static dir is a file", func(c *Config) { c.StaticDir = file }, "not a directory"},
		{"payload field", func(c *Config) { c.PayloadField = "" }, "payload_field"},
		{"body size", func(c *Config) { c.MaxRequestBodyBytes = 0 }, "max_request_body_bytes"},
		{"rate", func(c *Config) { c.RateLimits.ReadPerMin = -1 }, "read_per_min"},
		{"hash", func(c *Config) { c.Auth.WritePasswordHash = "hunter2" }, "bcrypt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
