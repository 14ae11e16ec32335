package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/readiness-cli/internal/analyzer"
	"github.com/sells-group/readiness-cli/internal/resilience"
	"github.com/sells-group/readiness-cli/internal/schema"
	"github.com/sells-group/readiness-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the configured store, waits for it to answer a ping and
// applies migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	retry := resilience.DefaultPolicy()
	retry.OnRetry = resilience.LogRetry("ping")
	if err := retry.Do(ctx, st.Ping); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "store unavailable")
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func loadSchema() (*schema.Schema, error) {
	s, err := schema.Load(cfg.Schema.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load schema")
	}
	return s, nil
}

func newAnalyzer(s *schema.Schema, db string) *analyzer.Analyzer {
	return analyzer.New(s, analyzer.WithDB(db))
}

func reportTTL() time.Duration {
	return time.Duration(cfg.Report.TTLHours) * time.Hour
}
