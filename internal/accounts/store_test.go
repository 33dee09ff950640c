package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
)

func TestNewStoreMemory(t *testing.T) {
	cfg := &config.Config{Accounts: config.AccountsConfig{Driver: "memory"}}
	store, err := NewStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestNewStoreMemoryRejectedInProd(t *testing.T) {
	cfg := &config.Config{
		App:      config.AppConfig{Env: "prod"},
		Accounts: config.AccountsConfig{Driver: "memory"},
	}
	_, err := NewStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
}

func TestNewStoreSQLite(t *testing.T) {
	cfg := &config.Config{
		Accounts: config.AccountsConfig{Driver: "SQLite"},
		DB:       config.DBConfig{DSN: "file::memory:", AutoMigrate: true},
	}
	store, err := NewStore(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &SQLStore{}, store)

	_, err = store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewStoreFirestoreRequiresCredentials(t *testing.T) {
	cfg := &config.Config{Accounts: config.AccountsConfig{Driver: "firestore"}}
	_, err := NewStore(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
}
