package accounts

import (
	"context"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	"github.com/angelmondragon/billing-bridge/pkg/db"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	pkgfirestore "github.com/angelmondragon/billing-bridge/pkg/firestore"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	"github.com/angelmondragon/billing-bridge/pkg/migrate"
)

// NewStore builds the account store selected by ACCOUNT_STORE.
func NewStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch kind := cfg.Accounts.Kind(); kind {
	case config.AccountStoreFirestore:
		client, err := pkgfirestore.NewClient(ctx, cfg.Firebase, logg)
		if err != nil {
			return nil, err
		}
		return NewFirestoreStore(client), nil
	case config.AccountStorePostgres, config.AccountStoreSQLite:
		client, err := db.New(ctx, kind, cfg.DB, logg)
		if err != nil {
			return nil, err
		}
		if err := migrate.MaybeRun(ctx, cfg.DB, logg, client); err != nil {
			_ = client.Close()
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "preparing account store")
		}
		return NewSQLStore(client), nil
	case config.AccountStoreMemory:
		if cfg.App.IsProd() {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "memory account store is not allowed in prod")
		}
		return NewMemoryStore(), nil
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "unsupported account store %q", kind)
	}
}
