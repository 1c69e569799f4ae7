// Package config loads the client configuration from a YAML file, a .env file and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ortelius/pdvd-auth/util"
	"gopkg.in/yaml.v2"
)

// Defaults
const (
	DefaultBaseURL     = "http://localhost:8080/api/v1"
	DefaultTimeout     = 10 * time.Second
	DefaultWaitTimeout = 2 * time.Minute
	DefaultConfigPath  = "~/.pdvd/config.yaml"
	DefaultSessionFile = "~/.pdvd/session.yaml"
)

// Config is the client configuration
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	SessionFile string        `yaml:"session_file"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     DefaultTimeout,
		WaitTimeout: DefaultWaitTimeout,
		SessionFile: DefaultSessionFile,
		LogLevel:    "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if it exists),
// a .env file in the working directory (if it exists) and PDVD_* environment variables.
// An explicitly named config file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}
	path = util.ExpandHome(path)

	if util.FileExists(path) {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s not found", path)
	}

	if util.FileExists(".env") {
		// Existing environment variables win over .env entries
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.SessionFile = util.ExpandHome(cfg.SessionFile)
	cfg.LogFile = util.ExpandHome(cfg.LogFile)

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.BaseURL = util.GetEnvDefault("PDVD_BASE_URL", c.BaseURL)
	c.SessionFile = util.GetEnvDefault("PDVD_SESSION_FILE", c.SessionFile)
	c.LogLevel = util.GetEnvDefault("PDVD_LOG_LEVEL", c.LogLevel)
	c.LogFile = util.GetEnvDefault("PDVD_LOG_FILE", c.LogFile)

	var err error
	if c.Timeout, err = envDuration("PDVD_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.WaitTimeout, err = envDuration("PDVD_WAIT_TIMEOUT", c.WaitTimeout); err != nil {
		return err
	}
	return nil
}

func envDuration(key string, defVal time.Duration) (time.Duration, error) {
	val := util.GetEnvDefault(key, "")
	if val == "" {
		return defVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var errors []string

	if c.BaseURL == "" {
		errors = append(errors, "base url (PDVD_BASE_URL) is required")
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid base url %q (must be http(s)://host[/path])", c.BaseURL))
	}
	if c.Timeout <= 0 {
		errors = append(errors, "timeout must be > 0")
	}
	if c.WaitTimeout <= 0 {
		errors = append(errors, "wait timeout must be > 0")
	}
	if c.SessionFile == "" {
		errors = append(errors, "session file (PDVD_SESSION_FILE) is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level %q (debug, info, warn, error)", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories
func (c *Config) Save(path string) error {
	path = util.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

