package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	"github.com/angelmondragon/billing-bridge/pkg/db"
)

func newSQLite(t *testing.T) *db.Client {
	t.Helper()
	client, err := db.New(context.Background(), config.AccountStoreSQLite, config.DBConfig{DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, Validate(FS, Dir))
}

func TestValidateRejectsBadFiles(t *testing.T) {
	bad := fstest.MapFS{
		"migrations/20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
	}
	assert.ErrorContains(t, Validate(bad, "migrations"), "-- +goose Down")

	dup := fstest.MapFS{
		"migrations/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"migrations/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	assert.ErrorContains(t, Validate(dup, "migrations"), "duplicate migration version")

	named := fstest.MapFS{
		"migrations/create-accounts.sql": {Data: []byte("")},
	}
	assert.ErrorContains(t, Validate(named, "migrations"), "invalid migration filename")
}

func TestDialect(t *testing.T) {
	d, err := Dialect(config.AccountStorePostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d)

	_, err = Dialect(config.AccountStoreMemory)
	assert.Error(t, err)
}

func TestUpDownSQLite(t *testing.T) {
	ctx := context.Background()
	client := newSQLite(t)
	sqlDB, err := client.SQL()
	require.NoError(t, err)

	require.NoError(t, Run(ctx, sqlDB, client.Driver(), "up"))
	version, err := Version(sqlDB, client.Driver())
	require.NoError(t, err)
	assert.Equal(t, int64(20260301120500), version)

	assert.True(t, client.DB().Migrator().HasTable("accounts"))

	require.NoError(t, MigrateToVersion(ctx, sqlDB, client.Driver(), "0"))
	assert.False(t, client.DB().Migrator().HasTable("accounts"))
}

func TestMaybeRunHonorsFlag(t *testing.T) {
	ctx := context.Background()
	client := newSQLite(t)

	require.NoError(t, MaybeRun(ctx, config.DBConfig{AutoMigrate: false}, nil, client))
	assert.False(t, client.DB().Migrator().HasTable("accounts"))

	require.NoError(t, MaybeRun(ctx, config.DBConfig{AutoMigrate: true}, nil, client))
	assert.True(t, client.DB().Migrator().HasTable("accounts"))
}
