package config

import "github.com/spf13/pflag"

// Flag names shared with the CLI.
const (
	FlagListen     = "listen"
	FlagStaticDir  = "static-dir"
	FlagDriver     = "driver"
	FlagDataDir    = "data-dir"
	FlagSQLitePath = "sqlite-path"
	FlagLogLevel   = "log-level"
	FlagFormat     = "format"
)

// applyFlags copies explicitly set flags onto cfg. Flags that are not
// registered on fs are ignored.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	bindings := map[string]*string{
		FlagListen:     &cfg.Listen,
		FlagStaticDir:  &cfg.StaticDir,
		FlagDriver:     &cfg.Storage.Driver,
		FlagDataDir:    &cfg.Storage.DataDir,
		FlagSQLitePath: &cfg.Storage.SQLitePath,
		FlagLogLevel:   &cfg.Log.Level,
		FlagFormat:     &cfg.Log.Format,
	}
	for name, dst := range bindings {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
