package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// ER_DUP_ENTRY
const errDupEntry = 1062

// Dialect is the MySQL SQL dialect
type Dialect struct{}

var _ adapters.Dialect = Dialect{}

// Name returns the adapter type
func (Dialect) Name() string { return AdapterType }

// QuoteIdentifier quotes with backticks
func (Dialect) QuoteIdentifier(identifier string) string {
	return adapters.QuoteWith(identifier, '`')
}

// Placeholder is always ?
func (Dialect) Placeholder(int) string { return "?" }

// Rebind returns query unchanged
func (Dialect) Rebind(query string) string { return query }

// InsertIgnore uses INSERT IGNORE
func (Dialect) InsertIgnore() (string, string) {
	return "INSERT IGNORE", ""
}

// Upsert uses ON DUPLICATE KEY UPDATE; MySQL picks the conflicting key itself.
func (d Dialect) Upsert(updateColumns, _ []string) string {
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		q := d.QuoteIdentifier(c)
		sets[i] = fmt.Sprintf("%s = VALUES(%s)", q, q)
	}
	return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

// RowValueList returns the row values as a plain parenthesized list
func (Dialect) RowValueList(tuples string) string { return "(" + tuples + ")" }

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

// IsDuplicateKey reports ER_DUP_ENTRY
func (Dialect) IsDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry
}
