package db

import (
	"context"
	"fmt"
	"log/slog"

	"broadcast-search/pkg/config"
	"broadcast-search/pkg/logging"
)

// OpenStore connects the episode store selected by cfg.Backend. SQL backends
// have their schema created on open.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	logger = logging.OrDiscard(logger)

	switch cfg.Backend {
	case config.BackendNone, "":
		logger.Debug("using in-memory episode store")
		return NewMemoryStore(), nil

	case config.BackendMongo:
		client := NewClient(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err := client.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		logger.Info("connected to mongo", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
		return client, nil

	case config.BackendPostgres:
		client := NewPostgresClient(PostgresConfig{DSN: cfg.PostgresDSN})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
		return openStoreTable(ctx, client, DialectPostgres)

	case config.BackendSupabase:
		client := NewSupabaseClient(SupabaseConfig{
			ConnectionString: cfg.SupabaseConnectionString,
			ProjectURL:       cfg.SupabaseURL,
			APIKey:           cfg.SupabaseKey,
			Password:         cfg.SupabasePassword,
		})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		if !client.HasDirectDB() {
			logger.Info("connected to supabase (REST API mode)")
			return NewRESTStore(client), nil
		}
		logger.Info("connected to supabase")
		return openStoreTable(ctx, client, DialectPostgres)

	case config.BackendSQLite:
		client := NewSQLiteClient(SQLiteConfig{Path: cfg.SQLitePath})
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		logger.Info("opened sqlite database", "path", cfg.SQLitePath)
		return openStoreTable(ctx, client, DialectSQLite)

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// OpenSQL connects a SQL backend and returns its episode table. It is used as
// the replication target.
func OpenSQL(ctx context.Context, cfg config.StorageConfig) (*EpisodeTable, error) {
	var (
		provider interface {
			DBProvider
			Connect(context.Context) error
		}
		dialect = DialectPostgres
	)

	switch cfg.Backend {
	case config.BackendPostgres:
		provider = NewPostgresClient(PostgresConfig{DSN: cfg.PostgresDSN})
	case config.BackendSupabase:
		provider = NewSupabaseClient(SupabaseConfig{
			ConnectionString: cfg.SupabaseConnectionString,
			ProjectURL:       cfg.SupabaseURL,
			APIKey:           cfg.SupabaseKey,
			Password:         cfg.SupabasePassword,
		})
	case config.BackendSQLite:
		provider = NewSQLiteClient(SQLiteConfig{Path: cfg.SQLitePath})
		dialect = DialectSQLite
	default:
		return nil, fmt.Errorf("backend %q is not a SQL backend", cfg.Backend)
	}

	if err := provider.Connect(ctx); err != nil {
		return nil, err
	}
	if provider.DB() == nil {
		return nil, fmt.Errorf("%s: direct database connection required: %w", cfg.Backend, ErrNotConnected)
	}
	return openTable(ctx, provider, dialect)
}

func openTable(ctx context.Context, provider DBProvider, dialect Dialect) (*EpisodeTable, error) {
	table := NewEpisodeTable(provider, dialect)
	if err := table.EnsureSchema(ctx); err != nil {
		_ = table.Close(ctx)
		return nil, err
	}
	return table, nil
}

func openStoreTable(ctx context.Context, provider DBProvider, dialect Dialect) (Store, error) {
	table, err := openTable(ctx, provider, dialect)
	if err != nil {
		return nil, err
	}
	return table, nil
}
