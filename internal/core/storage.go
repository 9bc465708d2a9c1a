package core

import (
	blobcore "checklist/internal/blob/core"
	"checklist/internal/config"
	"checklist/internal/infra/blob/fs"
	blobmemory "checklist/internal/infra/blob/memory"
	"checklist/internal/infra/blob/s3"
	"checklist/internal/infra/persistence/jsonfile"
	"checklist/internal/infra/persistence/memory"
	"checklist/internal/infra/persistence/objectstore"
	"checklist/internal/infra/persistence/postgres"
	"checklist/internal/infra/persistence/sqlite"
	"checklist/pkg/domain"
	"context"
	"fmt"
)

// OpenBackend constructs the collection backend selected by cfg.Driver.
//
//	memory      in-process only (tests / ephemeral)
//	jsonfile    <data_dir>/<collection>.json (default)
//	sqlite      state table in sqlite_path
//	postgres    state table reached through postgres_dsn
//	objectstore <prefix><collection>.json in the fs, s3 or memory blob store
func OpenBackend(ctx context.Context, cfg config.Storage) (domain.Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case "", config.DriverJSONFile:
		return jsonfile.New(cfg.DataDir)
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case config.DriverObjectStore:
		blobs, err := OpenBlobStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return objectstore.New(blobs, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// OpenBlobStore constructs the blob store used by the objectstore backend.
func OpenBlobStore(ctx context.Context, cfg config.Storage) (blobcore.Store, error) {
	driver, err := blobcore.ParseDriver(cfg.BlobDriver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case blobcore.DriverMemory:
		return blobmemory.New(), nil
	case blobcore.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return fs.New(cfg.BlobRoot)
	}
}

// OpenServices builds one Service per schema over a shared backend.
func OpenServices(ctx context.Context, backend domain.Backend, schemas []domain.Schema, opts ...ServiceOption) ([]*Service, error) {
	services := make([]*Service, 0, len(schemas))
	for _, schema := range schemas {
		store, err := NewStore(ctx, schema, backend)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", schema.Name, err)
		}
		services = append(services, NewService(store, opts...))
	}
	return services, nil
}
