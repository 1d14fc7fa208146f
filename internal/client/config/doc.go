// Package config loads runtime configuration for the timekeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with TIMEKEEPER_. A dotenv file
//     (default ".env", see --env-file) is read first; it never overrides
//     variables that are already set.
//  3. Optional JSON file selected via --config/-c or TIMEKEEPER_CONFIG.
//  4. Command-line flags, but only those set explicitly.
//
// Environment variables
//
//	TIMEKEEPER_SERVER_URL       sync server base URL
//	TIMEKEEPER_DATA_DIR         directory for the local database
//	TIMEKEEPER_DB_PATH          database file, overrides DATA_DIR
//	TIMEKEEPER_DEBOUNCE         delay before a triggered sync ("1s")
//	TIMEKEEPER_REQUEST_TIMEOUT  HTTP timeout ("15s")
//	TIMEKEEPER_LOG_LEVEL        debug, info, warn or error
//	TIMEKEEPER_METRICS_FILE     Prometheus textfile written after syncs
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "1s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "https://sync.example.com",
//	  "data_dir": "/home/me/.config/timekeeper",
//	  "debounce": "1s",
//	  "request_timeout": "15s",
//	  "log_level": "debug"
//	}
package config
