// Package config loads wowr's settings.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/wowr/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
//
// # Default Values
//
//   - Log directory: C:\Games\World of Warcraft\_retail_\Logs on Windows,
//     ~/Games/World of Warcraft/_retail_/Logs elsewhere
//   - Log pattern: WoWCombatLog-*.txt
//   - Diagnostic log: <log_dir>/wowr_log.txt
//   - Interval: 3s, backstop: 10s, resume settle: 1s
//   - Variant: simple
//   - OBS: 127.0.0.1:4455, no password, 5s timeout
//   - Debug logging: on
//
// # TOML Format
//
//	log_dir = "~/Games/World of Warcraft/_retail_/Logs"
//	interval = "3s"
//	backstop = "10s"
//	variant = "chaptered"
//	resume_settle = "1s"
//	watch_events = true
//	metrics_addr = "127.0.0.1:9477"
//
//	[obs]
//	address = "127.0.0.1:4455"
//	password = "secret"
//	timeout = "5s"
//
// Durations use Go syntax. Tilde expansion is performed on paths.
//
// # Overrides
//
// Config.Apply merges values supplied on the command line or through WOWR_*
// environment variables. Both Load and Apply validate the result: the interval
// must be at least 250ms and the backstop between 1s and 1m.
package config
