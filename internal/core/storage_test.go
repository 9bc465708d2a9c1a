package core

import (
	blobcore "checklist/internal/blob/core"
	"checklist/internal/config"
	"checklist/internal/infra/persistence/objectstore"
	"checklist/internal/infra/persistence/postgres"
	"checklist/internal/infra/persistence/postgres/testutil"
	"checklist/pkg/domain"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackendDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name   string
		cfg    config.Storage
		driver string
	}{
		{"memory", config.Storage{Driver: config.DriverMemory}, "memory"},
		{"default", config.Storage{DataDir: filepath.Join(dir, "default")}, "jsonfile"},
		{"jsonfile", config.Storage{Driver: config.DriverJSONFile, DataDir: filepath.Join(dir, "data")}, "jsonfile"},
		{"sqlite", config.Storage{Driver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "db", "c.db")}, "sqlite"},
		{"objectstore fs", config.Storage{Driver: config.DriverObjectStore, BlobRoot: filepath.Join(dir, "blobs")}, "objectstore"},
		{"objectstore memory", config.Storage{Driver: config.DriverObjectStore, BlobDriver: "memory", Prefix: "p/"}, "objectstore"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			backend, err := OpenBackend(ctx, tc.cfg)
			require.NoError(t, err)
			defer func() { _ = backend.Close() }()
			assert.Equal(t, tc.driver, backend.Driver())

			services, err := OpenServices(ctx, backend, domain.BuiltinSchemas())
			require.NoError(t, err)
			require.Len(t, services, 2)
			rec, err := services[0].Create(ctx, "ann", "milk")
			require.NoError(t, err)
			got, err := services[0].Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
			players, err := services[1].List(ctx)
			require.NoError(t, err)
			assert.Empty(t, players, "collections are independent")
		})
	}
}

func TestOpenBackendPostgres(t *testing.T) {
	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	backend, err := OpenBackend(context.Background(), config.Storage{Driver: config.DriverPostgres, PostgresDSN: "postgres://stub"})
	require.NoError(t, err)
	defer func() { _ = backend.Close() }()
	assert.Equal(t, "postgres", backend.Driver())
}

func TestOpenBackendS3(t *testing.T) {
	backend, err := OpenBackend(context.Background(), config.Storage{
		Driver:     config.DriverObjectStore,
		BlobDriver: "s3",
		S3:         config.S3{Bucket: "records", Endpoint: "http://localhost:9000", PathStyle: true, AccessKeyID: "k", SecretAccessKey: "s"},
	})
	require.NoError(t, err)
	store, ok := backend.(*objectstore.Store)
	require.True(t, ok)
	assert.Equal(t, blobcore.DriverS3, store.BlobDriver())
}

func TestOpenBackendErrors(t *testing.T) {
	ctx := context.Background()
	_, err := OpenBackend(ctx, config.Storage{Driver: "redis"})
	assert.Error(t, err)
	_, err = OpenBackend(ctx, config.Storage{Driver: config.DriverObjectStore, BlobDriver: "gcs"})
	assert.Error(t, err)
	_, err = OpenBackend(ctx, config.Storage{Driver: config.DriverObjectStore, BlobDriver: "s3"})
	assert.Error(t, err, "s3 without bucket")
}
