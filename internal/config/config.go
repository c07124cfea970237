// Package config loads the service configuration from dsinspect.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the default configuration file name, looked up in the
// datasets directory.
const FileName = "dsinspect.yaml"

// Config stores the service configuration.
// Loaded from dsinspect.yaml, defaults are used when the file is missing.
type Config struct {
	// HTTP is the host:port to listen on.
	HTTP string `yaml:"http"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// StaticDir holds the web UI. Empty serves the UI embedded in the binary.
	StaticDir string `yaml:"static_dir"`

	// PayloadField is the record field returned by the image endpoints.
	PayloadField string `yaml:"payload_field"`

	// MaxRequestBodyBytes limits the size of a request body.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes"`

	// RateLimits defines rate limiting per client IP.
	RateLimits RateLimits `yaml:"rate_limits"`

	// Auth protects the mutating routes.
	Auth Auth `yaml:"auth"`
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// ReadPerMin limits GET requests. 0 means unlimited.
	ReadPerMin int `yaml:"read_per_min"`

	// WritePerMin limits flag changes. 0 means unlimited.
	WritePerMin int `yaml:"write_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.ReadPerMin < 0 {
		return errors.New("read_per_min must be non-negative")
	}
	if r.WritePerMin < 0 {
		return errors.New("write_per_min must be non-negative")
	}
	return nil
}

// Auth configures HTTP Basic authentication of flag changes.
type Auth struct {
	// WritePasswordHash is a bcrypt hash. Empty leaves flag changes open.
	WritePasswordHash string `yaml:"write_password_hash"`
}

// Validate checks that the hash looks like a bcrypt hash.
func (a *Auth) Validate() error {
	if a.WritePasswordHash != "" && !strings.HasPrefix(a.WritePasswordHash, "$2") {
		return errors.New("write_password_hash must be a bcrypt hash")
	}
	return nil
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		HTTP:                "localhost:3000",
		LogLevel:            "info",
		PayloadField:        "PNG_IMAGE",
		MaxRequestBodyBytes: 1024 * 1024, // 1 MiB of hashes
		RateLimits: RateLimits{
			ReadPerMin:  6000, // the UI fetches images in bursts
			WritePerMin: 600,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := ValidateAddr(c.HTTP); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: invalid level %q", c.LogLevel)
	}
	if c.StaticDir != "" {
		if err := ValidateDir(c.StaticDir); err != nil {
			return fmt.Errorf("static_dir: %w", err)
		}
	}
	if c.PayloadField == "" {
		return errors.New("payload_field is required")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Load reads the configuration at path on top of the defaults. A missing file
// yields the defaults. The result is not validated, so that command line
// flags can still override it.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is an operator supplied flag
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return &cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidateAddr checks that addr is host:port with a port in 1-65535.
func ValidateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p)
	}
	return nil
}

// ValidateDir checks that path is an existing directory.
func ValidateDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
