package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// AdapterType is the registered store type
const AdapterType = "sqlite"

const driverSqlite = "sqlite"

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Adapter implements adapters.Adapter for SQLite
type Adapter struct {
	db      *sql.DB
	dialect Dialect
}

// Connect opens the database file (or ":memory:") and applies the import pragmas
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open(driverSqlite, cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: a ":memory:" database lives exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db

	if err := a.applyPragmas(ctx, isMemory(cfg.DSN)); err != nil {
		db.Close()
		return err
	}

	return nil
}

// Open connects a new adapter without going through the factory.
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	a := &Adapter{}
	if err := a.Connect(ctx, adapters.Config{Type: AdapterType, DSN: dsn}); err != nil {
		return nil, err
	}
	return a, nil
}

// Close closes the handle
func (a *Adapter) Close(ctx context.Context) error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ping checks the connection
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("adapter not connected")
	}
	return a.db.PingContext(ctx)
}

// DB returns the shared handle
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Dialect returns the SQLite dialect
func (a *Adapter) Dialect() adapters.Dialect {
	return a.dialect
}

// GetDatabaseType returns the adapter type
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetDatabaseVersion returns the SQLite library version
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	var version string
	err := a.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return "SQLite " + version, nil
}

// applyPragmas tunes SQLite for large batched writes
func (a *Adapter) applyPragmas(ctx context.Context, memory bool) error {
	pragmas := []string{
		// fsync only at checkpoints; safe together with WAL
		"PRAGMA synchronous = NORMAL",
		// 64 MB page cache
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	if !memory {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}

	for _, pragma := range pragmas {
		if _, err := a.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("%s failed: %w", pragma, err)
		}
	}
	return nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
