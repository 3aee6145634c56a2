// Package app wires the store, use cases and their ambient dependencies for
// the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/danhlc/poslite/internal/adapter/idgen"
	postgresRepo "github.com/danhlc/poslite/internal/adapter/repository/postgres"
	"github.com/danhlc/poslite/internal/adapter/repository/retry"
	sqliteRepo "github.com/danhlc/poslite/internal/adapter/repository/sqlite"
	"github.com/danhlc/poslite/internal/infrastructure/config"
	"github.com/danhlc/poslite/internal/infrastructure/postgres"
	"github.com/danhlc/poslite/internal/infrastructure/sqlite"
	"github.com/danhlc/poslite/internal/usecase"
)

// Store bundles the repositories of one database driver.
type Store struct {
	Driver     string
	TxManager  usecase.TransactionManager
	Entities   usecase.EntityStore
	Customers  usecase.CustomerRepository
	Categories usecase.CategoryRepository
	Products   usecase.ProductRepository
	Ledger     usecase.LedgerRepository
	Retrier    *retry.Retrier

	ping  func(ctx context.Context) error
	close func()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the database connections.
func (s *Store) Close() {
	s.close()
}

// OpenStore connects to the configured database and applies pending
// migrations.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, err
		}

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, err
		}
		return newPostgresStore(pool, cfg, logger), nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLitePath,
			BusyTimeout: cfg.SQLiteBusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db, cfg, logger), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func newPostgresStore(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger) *Store {
	return &Store{
		Driver:     config.DriverPostgres,
		TxManager:  postgresRepo.NewTxManager(pool),
		Entities:   postgresRepo.NewEntityStore(),
		Customers:  postgresRepo.NewCustomerRepository(pool),
		Categories: postgresRepo.NewCategoryRepository(pool),
		Products:   postgresRepo.NewProductRepository(pool),
		Ledger:     postgresRepo.NewLedgerRepository(pool),
		Retrier:    postgresRepo.NewRetrier(logger).WithMaxRetries(cfg.LedgerMaxRetries),
		ping:       pool.Ping,
		close:      pool.Close,
	}
}

// NewSQLiteStore builds a Store over an open, migrated SQLite database.
func NewSQLiteStore(db *sql.DB, cfg *config.Config, logger zerolog.Logger) *Store {
	return &Store{
		Driver:     config.DriverSQLite,
		TxManager:  sqliteRepo.NewTxManager(db),
		Entities:   sqliteRepo.NewEntityStore(),
		Customers:  sqliteRepo.NewCustomerRepository(db),
		Categories: sqliteRepo.NewCategoryRepository(db),
		Products:   sqliteRepo.NewProductRepository(db),
		Ledger:     sqliteRepo.NewLedgerRepository(db),
		Retrier:    sqliteRepo.NewRetrier(logger).WithMaxRetries(cfg.LedgerMaxRetries),
		ping:       db.PingContext,
		close:      func() { db.Close() },
	}
}

// Services holds the use cases built over a Store.
type Services struct {
	Saver      *usecase.EntityUseCase
	Customers  *usecase.CustomerUseCase
	Catalog    *usecase.CatalogUseCase
	Ledger     *usecase.LedgerUseCase
	SearchKeys *usecase.SearchKeyUseCase
}

// NewServices builds every use case over store. metrics may be nil.
func NewServices(store *Store, logger zerolog.Logger, metrics usecase.MetricsRecorder) *Services {
	ids := idgen.NewULIDGenerator()

	pipeline := usecase.NewAuditPipeline(logger)
	ledger := usecase.NewLedgerUseCase(store.TxManager, store.Customers, store.Ledger, ids).
		WithRetrier(store.Retrier)
	if metrics != nil {
		pipeline.WithMetrics(metrics)
		ledger.WithMetrics(metrics)
	}

	saver := usecase.NewEntityUseCase(store.TxManager, store.Entities, pipeline).
		WithRetrier(store.Retrier)

	return &Services{
		Saver:      saver,
		Customers:  usecase.NewCustomerUseCase(store.Customers, saver, ids),
		Catalog:    usecase.NewCatalogUseCase(store.Categories, store.Products, saver, ids),
		Ledger:     ledger,
		SearchKeys: usecase.NewSearchKeyUseCase(store.Customers, store.Categories, store.Products, saver, logger),
	}
}
