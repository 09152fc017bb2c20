package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/gophauth/internal/filex"
)

// Config holds runtime settings for the gauth CLI.
type Config struct {
	Store     string `json:"store" yaml:"store" env:"STORE" validate:"oneof=sqlite badger memory"`
	DataDir   string `json:"data_dir" yaml:"data_dir" env:"DATA_DIR" validate:"required_unless=Store memory"`
	Hasher    string `json:"hasher" yaml:"hasher" env:"HASHER" validate:"oneof=sha256 argon2id bcrypt"`
	LogLevel  string `json:"log_level" yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `json:"log_format" yaml:"log_format" env:"LOG_FORMAT" validate:"oneof=text json"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Store = "sqlite"
	c.DataDir = filex.DefaultDataDir()
	c.Hasher = "sha256"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.Environ())
}

// Load applies defaults, then the config file named in args, then environ
// (KEY=VALUE pairs), then flags in args. Later sources take precedence.
func Load(args, environ []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
