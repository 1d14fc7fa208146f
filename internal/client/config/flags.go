package config

import (
	"github.com/spf13/pflag"
)

// Flags are the configuration flags shared by every command.
type Flags struct {
	ConfigFile string
	EnvFile    string

	fs     *pflag.FlagSet
	values Config
}

// BindFlags registers the configuration flags on fs. Only flags the user
// sets explicitly override the other sources.
func BindFlags(fs *pflag.FlagSet) *Flags {
	var d Config
	d.LoadDefaults()

	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a JSON config file")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "dotenv file to read before the environment")
	fs.StringVarP(&f.values.ServerURL, "server", "s", d.ServerURL, "sync server base URL")
	fs.StringVar(&f.values.DataDir, "data-dir", d.DataDir, "directory for local data")
	fs.StringVar(&f.values.DBPath, "db", "", "database file (default <data-dir>/"+dbFileName+")")
	fs.DurationVar(&f.values.DebounceDelay, "debounce", d.DebounceDelay, "delay before a triggered sync starts")
	fs.DurationVar(&f.values.RequestTimeout, "timeout", d.RequestTimeout, "timeout for server requests")
	fs.StringVar(&f.values.LogLevel, "log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.values.MetricsFile, "metrics-file", "", "write sync metrics to this Prometheus textfile")
	return f
}

func (f *Flags) apply(cfg *Config) {
	if f.fs == nil {
		return
	}
	if f.fs.Changed("server") {
		cfg.ServerURL = f.values.ServerURL
	}
	if f.fs.Changed("data-dir") {
		cfg.DataDir = f.values.DataDir
	}
	if f.fs.Changed("db") {
		cfg.DBPath = f.values.DBPath
	}
	if f.fs.Changed("debounce") {
		cfg.DebounceDelay = f.values.DebounceDelay
	}
	if f.fs.Changed("timeout") {
		cfg.RequestTimeout = f.values.RequestTimeout
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.values.LogLevel
	}
	if f.fs.Changed("metrics-file") {
		cfg.MetricsFile = f.values.MetricsFile
	}
}
