package adapters

import (
	"context"
	"strconv"
	"strings"
)

// Dialect hides the SQL differences between stores. Table and column names
// are the only strings a Dialect interpolates; values always travel as
// parameters.
type Dialect interface {
	// Name returns the store type the dialect belongs to
	Name() string

	// QuoteIdentifier quotes a table or column name
	//   MySQL:             `name`
	//   PostgreSQL/SQLite: "name"
	QuoteIdentifier(identifier string) string

	// Placeholder returns the n-th (1-based) parameter marker
	Placeholder(n int) string

	// Rebind rewrites a query written with ? markers into the dialect's markers
	Rebind(query string) string

	// InsertIgnore returns the verb and trailing clause of an insert that
	// silently skips rows violating a unique key
	InsertIgnore() (verb, suffix string)

	// Upsert returns the trailing clause that turns an insert into an
	// insert-or-update of updateColumns on conflict with keyColumns
	Upsert(updateColumns, keyColumns []string) string

	// RowValueList wraps "(?,?),(?,?)" into the right-hand side of a
	// row-value IN
	RowValueList(tuples string) string

	// InsertReturningID executes a single-row insert and returns the generated id
	InsertReturningID(ctx context.Context, db DB, query, idColumn string, args ...any) (int64, error)

	// IsDuplicateKey reports whether err is a unique key violation
	IsDuplicateKey(err error) bool
}

// RebindDollar rewrites ? markers into $1..$n. Markers inside single quoted
// literals are left alone.
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// QuoteWith quotes identifier with q, doubling embedded quote characters
func QuoteWith(identifier string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(identifier, s, s+s) + s
}

// QuoteAll quotes each identifier with the dialect
func QuoteAll(d Dialect, identifiers []string) []string {
	quoted := make([]string, len(identifiers))
	for i, id := range identifiers {
		quoted[i] = d.QuoteIdentifier(id)
	}
	return quoted
}
