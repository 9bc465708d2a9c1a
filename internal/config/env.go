package config

import "strings"

// Environment variable names.
const (
	EnvListen        = "CHECKLIST_LISTEN"
	EnvStaticDir     = "CHECKLIST_STATIC_DIR"
	EnvStorageDriver = "CHECKLIST_STORAGE_DRIVER"
	EnvDataDir       = "CHECKLIST_DATA_DIR"
	EnvSQLitePath    = "CHECKLIST_SQLITE_PATH"
	EnvPostgresDSN   = "CHECKLIST_POSTGRES_DSN"
	EnvBlobDriver    = "CHECKLIST_BLOB_DRIVER"
	EnvBlobRoot      = "CHECKLIST_BLOB_ROOT"
	EnvBlobPrefix    = "CHECKLIST_BLOB_PREFIX"
	EnvS3Bucket      = "CHECKLIST_S3_BUCKET"
	EnvS3Region      = "CHECKLIST_S3_REGION"
	EnvS3Endpoint    = "CHECKLIST_S3_ENDPOINT"
	EnvS3PathStyle   = "CHECKLIST_S3_PATH_STYLE"
	EnvS3AccessKey   = "CHECKLIST_S3_ACCESS_KEY_ID"
	EnvS3SecretKey   = "CHECKLIST_S3_SECRET_ACCESS_KEY"
	EnvLogLevel      = "CHECKLIST_LOG_LEVEL"
	EnvLogFormat     = "CHECKLIST_LOG_FORMAT"
	EnvLogTimestamps = "CHECKLIST_LOG_TIMESTAMPS"
)

// loadFromEnv overrides cfg from non-empty environment variables.
func loadFromEnv(cfg *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = boolFromString(v)
		}
	}

	str(EnvListen, &cfg.Listen)
	str(EnvStaticDir, &cfg.StaticDir)
	str(EnvStorageDriver, &cfg.Storage.Driver)
	str(EnvDataDir, &cfg.Storage.DataDir)
	str(EnvSQLitePath, &cfg.Storage.SQLitePath)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN)
	str(EnvBlobDriver, &cfg.Storage.BlobDriver)
	str(EnvBlobRoot, &cfg.Storage.BlobRoot)
	str(EnvBlobPrefix, &cfg.Storage.Prefix)
	str(EnvS3Bucket, &cfg.Storage.S3.Bucket)
	str(EnvS3Region, &cfg.Storage.S3.Region)
	str(EnvS3Endpoint, &cfg.Storage.S3.Endpoint)
	boolean(EnvS3PathStyle, &cfg.Storage.S3.PathStyle)
	str(EnvS3AccessKey, &cfg.Storage.S3.AccessKeyID)
	str(EnvS3SecretKey, &cfg.Storage.S3.SecretAccessKey)
	str(EnvLogLevel, &cfg.Log.Level)
	str(EnvLogFormat, &cfg.Log.Format)
	boolean(EnvLogTimestamps, &cfg.Log.Timestamps)
}

func boolFromString(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
