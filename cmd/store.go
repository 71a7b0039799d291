package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/semitone-cli/internal/config"
	"github.com/sells-group/semitone-cli/internal/resilience"
	"github.com/sells-group/semitone-cli/internal/store"
)

// initStore opens the room store named by the configured driver.
func initStore(ctx context.Context, c config.StoreConfig) (store.Host, error) {
	switch c.Driver {
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "semitone.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		retry := c.Retry
		retry.OnRetry = resilience.RetryLogger("postgres connect")
		var st *store.PostgresStore
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			var err error
			st, err = store.NewPostgres(ctx, c.DatabaseURL, &c.Pool)
			return err
		})
		if err != nil {
			return nil, err
		}
		return st, nil
	case "memory":
		return store.NewMemory(nil), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Host, error) {
	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
