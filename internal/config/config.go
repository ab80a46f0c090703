// Package config resolves the plugin configuration from defaults, a YAML
// file, secrets.env, the environment and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/3cpo-dev/metrics-pfsense/internal/fauxapi"
)

// AppName names the XDG config directory.
const AppName = "metrics-pfsense"

const (
	EnvHost      = "PFSENSE_HOST"
	EnvPort      = "PFSENSE_PORT"
	EnvAPIKey    = "PFSENSE_API_KEY"
	EnvAPISecret = "PFSENSE_API_SECRET"
	EnvScheme    = "PFSENSE_SCHEME"
)

type Config struct {
	Scheme    string        `yaml:"scheme" validate:"required"`
	Host      string        `yaml:"host" validate:"required"`
	Port      int           `yaml:"port" validate:"min=1,max=65535"`
	APIKey    string        `yaml:"api_key" validate:"required"`
	APISecret string        `yaml:"api_secret" validate:"required"`
	HTTPS     bool          `yaml:"https"`
	Insecure  bool          `yaml:"insecure"`
	Verbose   bool          `yaml:"verbose"`
	Timeout   time.Duration `yaml:"timeout" validate:"min=0"`
	Format    string        `yaml:"format" validate:"oneof=graphite prometheus"`
}

// Default returns the built-in defaults. Scheme is left empty and resolved
// by ResolveScheme.
func Default() Config {
	return Config{
		Port:    80,
		Timeout: fauxapi.DefaultTimeout,
		Format:  "graphite",
	}
}

// Target returns the request target described by c.
func (c Config) Target() fauxapi.Target {
	return fauxapi.Target{
		Host:     c.Host,
		Port:     c.Port,
		HTTPS:    c.HTTPS,
		Insecure: c.Insecure,
		Verbose:  c.Verbose,
		Timeout:  c.Timeout,
	}
}

// Credentials returns the API key pair.
func (c Config) Credentials() fauxapi.Credentials {
	return fauxapi.Credentials{Key: c.APIKey, Secret: c.APISecret}
}

// DefaultPath resolves $XDG_CONFIG_HOME/metrics-pfsense/<name> or
// ~/.config/metrics-pfsense/<name>.
func DefaultPath(name string) string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, AppName, name)
}

// LoadFile overlays the YAML file at path onto cfg. If path is empty the
// default location is used and a missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath("config.yaml")
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays secrets and then environment variables onto cfg.
// lookup is normally os.LookupEnv.
func ApplyEnv(cfg *Config, secrets map[string]string, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := secrets[key]
		return v, ok && v != ""
	}
	if v, ok := get(EnvAPIKey); ok {
		cfg.APIKey = v
	}
	if v, ok := get(EnvAPISecret); ok {
		cfg.APISecret = v
	}
	if v, ok := get(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := get(EnvScheme); ok {
		cfg.Scheme = v
	}
	if v, ok := get(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	return nil
}

// ResolveScheme fills in the {hostname}.pfsense default when no scheme was
// configured.
func ResolveScheme(cfg *Config, hostname func() (string, error)) error {
	if cfg.Scheme != "" {
		return nil
	}
	host, err := hostname()
	if err != nil {
		return fmt.Errorf("resolve hostname for scheme: %w", err)
	}
	cfg.Scheme = host + ".pfsense"
	return nil
}
