package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-store", "-data-dir", "-hasher", "-log-level", "-log-format",
	"--store", "--data-dir", "--hasher", "--log-level", "--log-format",
}

// parseFlags populates cfg from the flags it knows about. Other arguments,
// -c/-config included, are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("gauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Store, "store", cfg.Store, "storage backend: sqlite, badger or memory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.Hasher, "hasher", cfg.Hasher, "password hasher: sha256, argon2id or bcrypt")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
