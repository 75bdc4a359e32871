package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// AdapterType is the registered store type
const AdapterType = "postgres"

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter implements adapters.Adapter for PostgreSQL.
// The pgx pool is capped at one connection and exposed as *sql.DB.
type Adapter struct {
	pool    *pgxpool.Pool
	db      *sql.DB
	dialect Dialect
}

// Connect parses the DSN and opens the pool
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 1
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.pool = pool
	a.db = stdlib.OpenDBFromPool(pool)
	a.db.SetMaxOpenConns(1)

	return nil
}

// Close closes the handle and the pool
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ping checks the connection
func (a *Adapter) Ping(ctx context.Context) error {
	if a.pool == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.pool.Ping(ctx)
}

// DB returns the shared handle
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Dialect returns the PostgreSQL dialect
func (a *Adapter) Dialect() adapters.Dialect {
	return a.dialect
}

// GetDatabaseType returns the adapter type
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetDatabaseVersion returns the server version
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	var version string
	err := a.pool.QueryRow(ctx, "SELECT version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}
