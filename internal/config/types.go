// Package config loads checklistd configuration from defaults, an optional
// TOML file, CHECKLIST_* environment variables and command-line flags, in
// that order of precedence.
package config

import (
	"checklist/internal/logging"
	"fmt"
	"strings"
)

// Storage drivers accepted by Storage.Driver.
const (
	DriverMemory      = "memory"
	DriverJSONFile    = "jsonfile"
	DriverSQLite      = "sqlite"
	DriverPostgres    = "postgres"
	DriverObjectStore = "objectstore"
)

// Default values.
const (
	DefaultListen     = ":3000"
	DefaultDriver     = DriverJSONFile
	DefaultDataDir    = "data"
	DefaultSQLitePath = "checklist.db"
	DefaultBlobDriver = "fs"
	DefaultBlobRoot   = "blobdata"
	DefaultS3Region   = "us-east-1"
	DefaultConfigFile = "checklist.toml"
)

// Config holds the full configuration for checklistd.
type Config struct {
	Listen    string  `toml:"listen"`
	StaticDir string  `toml:"static_dir"`
	Storage   Storage `toml:"storage"`
	Log       Log     `toml:"log"`
}

// Storage selects and configures the collection backend.
type Storage struct {
	Driver      string `toml:"driver"`
	DataDir     string `toml:"data_dir"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	BlobDriver  string `toml:"blob_driver"`
	BlobRoot    string `toml:"blob_root"`
	Prefix      string `toml:"prefix"`
	S3          S3     `toml:"s3"`
}

// S3 configures the S3/MinIO blob driver used by the objectstore backend.
type S3 struct {
	Bucket          string `toml:"bucket"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	PathStyle       bool   `toml:"path_style"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Log configures the process logger.
type Log struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Timestamps bool   `toml:"timestamps"`
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Storage: Storage{
			Driver:     DefaultDriver,
			DataDir:    DefaultDataDir,
			SQLitePath: DefaultSQLitePath,
			BlobDriver: DefaultBlobDriver,
			BlobRoot:   DefaultBlobRoot,
			S3:         S3{Region: DefaultS3Region},
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Validate rejects unknown drivers, log levels and formats and missing
// driver-specific settings.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverJSONFile, DriverSQLite, DriverObjectStore:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("storage.postgres_dsn required for driver %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverObjectStore {
		switch c.Storage.BlobDriver {
		case "", "fs", "memory":
		case "s3":
			if c.Storage.S3.Bucket == "" {
				return fmt.Errorf("storage.s3.bucket required for blob driver s3")
			}
		default:
			return fmt.Errorf("unknown blob driver %q", c.Storage.BlobDriver)
		}
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen address required")
	}
	return nil
}
