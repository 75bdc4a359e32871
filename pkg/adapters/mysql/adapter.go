package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"github.com/ruslano69/productimport/pkg/adapters"
)

// AdapterType is the registered store type
const AdapterType = "mysql"

// Compile-time check
var _ adapters.Adapter = (*Adapter)(nil)

// Adapter implements adapters.Adapter for MySQL and MariaDB
type Adapter struct {
	db      *sql.DB
	config  adapters.Config
	dialect Dialect
}

func init() {
	adapters.Register(AdapterType, func() adapters.Adapter {
		return &Adapter{}
	})
}

// Connect opens the MySQL handle
func (a *Adapter) Connect(ctx context.Context, cfg adapters.Config) error {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.config = cfg

	return nil
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

// Dialect returns the MySQL dialect
func (a *Adapter) Dialect() adapters.Dialect {
	return a.dialect
}

// GetDatabaseType returns the adapter type
func (a *Adapter) GetDatabaseType() string {
	return AdapterType
}

// GetDatabaseVersion returns the MySQL server version
func (a *Adapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	var version string
	err := a.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}
