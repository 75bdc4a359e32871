package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// Dialect is the SQLite SQL dialect
type Dialect struct{}

var _ adapters.Dialect = Dialect{}

// Name returns the adapter type
func (Dialect) Name() string { return AdapterType }

// QuoteIdentifier quotes with double quotes
func (Dialect) QuoteIdentifier(identifier string) string {
	return adapters.QuoteWith(identifier, '"')
}

// Placeholder is always ?
func (Dialect) Placeholder(int) string { return "?" }

// Rebind returns query unchanged
func (Dialect) Rebind(query string) string { return query }

// InsertIgnore uses INSERT OR IGNORE
func (Dialect) InsertIgnore() (string, string) {
	return "INSERT OR IGNORE", ""
}

// Upsert updates on conflict with the key columns through excluded
func (d Dialect) Upsert(updateColumns, keyColumns []string) string {
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		q := d.QuoteIdentifier(c)
		sets[i] = fmt.Sprintf("%s = excluded.%s", q, q)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(adapters.QuoteAll(d, keyColumns), ", "), strings.Join(sets, ", "))
}

// RowValueList uses a VALUES subquery; SQLite rejects a plain list of row values.
func (Dialect) RowValueList(tuples string) string { return "(VALUES " + tuples + ")" }

// InsertReturningID executes query and reads LastInsertId
func (Dialect) InsertReturningID(ctx context.Context, db adapters.DB, query, _ string, args ...any) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// IsDuplicateKey reports unique and primary key constraint failures
func (Dialect) IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	// primary result codes only carry the message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
