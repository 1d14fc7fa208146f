package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "TIMEKEEPER_"

// loadDotEnv exports the variables of a dotenv file into the process
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_URL":   &cfg.ServerURL,
		"DATA_DIR":     &cfg.DataDir,
		"DB_PATH":      &cfg.DBPath,
		"LOG_LEVEL":    &cfg.LogLevel,
		"METRICS_FILE": &cfg.MetricsFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"DEBOUNCE":        &cfg.DebounceDelay,
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}
