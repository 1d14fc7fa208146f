package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Empty fields leave the current value untouched.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DataDir        string         `json:"data_dir"`
	DBPath         string         `json:"db_path"`
	DebounceDelay  timex.Duration `json:"debounce"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	LogLevel       string         `json:"log_level"`
	MetricsFile    string         `json:"metrics_file"`
}

// parseJSON overlays cfg with the values found in the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsFile, jc.MetricsFile)

	if jc.DebounceDelay.Duration != 0 {
		cfg.DebounceDelay = jc.DebounceDelay.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
