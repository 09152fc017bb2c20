// Package config loads runtime configuration for the gauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables prefixed with GAUTH_.
//  4. Command-line flags, which override everything else.
//
// The result is validated before it is returned.
//
// Supported flags
//
//	-store string       sqlite | badger | memory
//	-data-dir string    directory for the sqlite file or badger files
//	-hasher string      sha256 | argon2id | bcrypt
//	-log-level string   debug | info | warn | error
//	-log-format string  text | json
//
// # File schema
//
//	{
//	  "store": "sqlite",
//	  "data_dir": "/home/me/.local/share/gophauth",
//	  "hasher": "sha256",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
