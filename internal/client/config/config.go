package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

const dbFileName = "timekeeper.db"

// Config holds runtime settings for the timekeeper CLI.
type Config struct {
	ServerURL      string
	DataDir        string
	DBPath         string
	DebounceDelay  time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	MetricsFile    string
}

// userConfigDir is replaced in tests.
var userConfigDir = os.UserConfigDir

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DataDir = defaultDataDir()
	c.DBPath = ""
	c.DebounceDelay = time.Second
	c.RequestTimeout = 15 * time.Second
	c.LogLevel = "info"
	c.MetricsFile = ""
}

func defaultDataDir() string {
	dir, err := userConfigDir()
	if err != nil || dir == "" {
		return ".timekeeper"
	}
	return filepath.Join(dir, "timekeeper")
}

// DatabasePath is DBPath, or the default database file inside DataDir.
func (c *Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, dbFileName)
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q: must be an absolute http(s) url", c.ServerURL)
	}
	if c.DataDir == "" {
		return errors.New("data dir must not be empty")
	}
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay %s: must not be negative", c.DebounceDelay)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout %s: must be positive", c.RequestTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Load builds a Config from defaults, then the environment (optionally
// seeded from a dotenv file), then a JSON file, then explicitly set flags.
// Later sources take precedence over earlier ones. f may be nil.
func Load(f *Flags) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	envFile := ""
	if f != nil {
		envFile = f.EnvFile
	}
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	jsonFile, _ := os.LookupEnv(envPrefix + "CONFIG")
	if f != nil && f.ConfigFile != "" {
		jsonFile = f.ConfigFile
	}
	if jsonFile != "" {
		if err := parseJSON(cfg, jsonFile); err != nil {
			return nil, err
		}
	}

	if f != nil {
		f.apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
