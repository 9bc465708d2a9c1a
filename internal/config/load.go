package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is an explicit config file; it must exist when set. When empty,
	// DefaultConfigFile in the working directory is used if present.
	Path string
	// Getenv looks up environment variables (os.Getenv when nil).
	Getenv func(string) string
	// Flags overrides values for flags the user explicitly set.
	Flags *pflag.FlagSet
}

// Load resolves configuration in priority order:
// 1. Defaults
// 2. TOML config file
// 3. Environment variables
// 4. CLI flags
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := opts.Path
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	loadFromEnv(cfg, getenv)

	if opts.Flags != nil {
		if err := applyFlags(cfg, opts.Flags); err != nil {
			return nil, fmt.Errorf("applying flags: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadConfigFile decodes TOML into cfg, rejecting keys it does not know.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return nil
}
