package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mailsync/internal/store"
)

// initStore opens the configured database backend. Callers own the returned
// store and must Close it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "mailsync.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
