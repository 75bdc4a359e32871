package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// unique_violation
const uniqueViolation = "23505"

// Dialect is the PostgreSQL SQL dialect
type Dialect struct{}

var _ adapters.Dialect = Dialect{}

// Name returns the adapter type
func (Dialect) Name() string { return AdapterType }

// QuoteIdentifier quotes with double quotes
func (Dialect) QuoteIdentifier(identifier string) string {
	return adapters.QuoteWith(identifier, '"')
}

// Placeholder returns the n-th positional parameter, $n
func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// Rebind turns ? placeholders into $1..$n
func (Dialect) Rebind(query string) string { return adapters.RebindDollar(query) }

// InsertIgnore skips conflicting rows with ON CONFLICT DO NOTHING
func (Dialect) InsertIgnore() (string, string) {
	return "INSERT", "ON CONFLICT DO NOTHING"
}

// Upsert updates on conflict with the key columns
func (d Dialect) Upsert(updateColumns, keyColumns []string) string {
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		q := d.QuoteIdentifier(c)
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(adapters.QuoteAll(d, keyColumns), ", "), strings.Join(sets, ", "))
}

// RowValueList returns the row values as a plain parenthesized list
func (Dialect) RowValueList(tuples string) string { return "(" + tuples + ")" }

// InsertReturningID appends a RETURNING clause; pgx does not support LastInsertId.
func (d Dialect) InsertReturningID(ctx context.Context, db adapters.DB, query, idColumn string, args ...any) (int64, error) {
	var id int64
	q := query + " RETURNING " + d.QuoteIdentifier(idColumn)
	if err := db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// IsDuplicateKey reports a unique_violation
func (Dialect) IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
