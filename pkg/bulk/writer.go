// Package bulk turns row sets into single multi-row statements.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// ErrRowShape is returned when the value count is not a multiple of the column count.
var ErrRowShape = errors.New("bulk: value count is not a multiple of column count")

// Writer issues one parameterized statement per call. Values are row-major:
// columns [a b] with values [1 2 3 4] are the rows (1,2) and (3,4).
// Only table and column names are interpolated into the SQL text.
type Writer struct {
	db      adapters.DB
	dialect adapters.Dialect
}

// NewWriter creates a writer bound to one handle
func NewWriter(db adapters.DB, d adapters.Dialect) *Writer {
	return &Writer{db: db, dialect: d}
}

// Insert adds the rows
func (w *Writer) Insert(ctx context.Context, table string, columns []string, values []any) error {
	return w.exec(ctx, "insert", table, values, func() (string, error) {
		return w.BuildInsert(table, columns, values)
	})
}

// Upsert inserts the rows, updating every non-key column on a key conflict.
// Without non-key columns there is nothing to update and the rows are inserted ignoring duplicates.
func (w *Writer) Upsert(ctx context.Context, table string, columns, keys []string, values []any) error {
	return w.exec(ctx, "upsert", table, values, func() (string, error) {
		return w.BuildUpsert(table, columns, keys, values)
	})
}

// InsertIgnore inserts the rows, skipping rows that violate a unique key
func (w *Writer) InsertIgnore(ctx context.Context, table string, columns []string, values []any) error {
	return w.exec(ctx, "insert ignore", table, values, func() (string, error) {
		return w.BuildInsertIgnore(table, columns, values)
	})
}

// Delete removes the rows whose keyColumns match one of the value tuples.
// extra is an optional condition written with ? markers, ANDed to the key match.
func (w *Writer) Delete(ctx context.Context, table string, keyColumns []string, values []any, extra string, extraArgs ...any) error {
	args := values
	if len(extraArgs) > 0 {
		args = append(append(make([]any, 0, len(values)+len(extraArgs)), values...), extraArgs...)
	}
	return w.exec(ctx, "delete", table, values, func() (string, error) {
		return w.BuildDelete(table, keyColumns, values, extra)
	}, args...)
}

func (w *Writer) exec(ctx context.Context, op, table string, values []any, build func() (string, error), args ...any) error {
	if len(values) == 0 {
		return nil
	}
	query, err := build()
	if err != nil {
		return err
	}
	if args == nil {
		args = values
	}
	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk %s into %s: %w", op, table, err)
	}
	return nil
}

// BuildInsert renders the insert statement for values
func (w *Writer) BuildInsert(table string, columns []string, values []any) (string, error) {
	return w.buildInsert("INSERT", "", table, columns, values)
}

// BuildInsertIgnore renders the insert-ignore statement for values
func (w *Writer) BuildInsertIgnore(table string, columns []string, values []any) (string, error) {
	verb, suffix := w.dialect.InsertIgnore()
	return w.buildInsert(verb, suffix, table, columns, values)
}

// BuildUpsert renders the upsert statement for values
func (w *Writer) BuildUpsert(table string, columns, keys []string, values []any) (string, error) {
	update := make([]string, 0, len(columns))
	for _, c := range columns {
		if !contains(keys, c) {
			update = append(update, c)
		}
	}
	if len(update) == 0 {
		return w.BuildInsertIgnore(table, columns, values)
	}
	return w.buildInsert("INSERT", w.dialect.Upsert(update, keys), table, columns, values)
}

// BuildDelete renders the delete statement for values
func (w *Writer) BuildDelete(table string, keyColumns []string, values []any, extra string) (string, error) {
	rows, err := rowCount(keyColumns, values)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(w.dialect.QuoteIdentifier(table))
	b.WriteString(" WHERE ")

	if len(keyColumns) == 1 {
		b.WriteString(w.dialect.QuoteIdentifier(keyColumns[0]))
		b.WriteString(" IN (")
		writeMarkers(&b, rows)
		b.WriteString(")")
	} else {
		b.WriteString("(")
		b.WriteString(strings.Join(adapters.QuoteAll(w.dialect, keyColumns), ", "))
		b.WriteString(") IN ")
		var tuples strings.Builder
		writeTuples(&tuples, rows, len(keyColumns))
		b.WriteString(w.dialect.RowValueList(tuples.String()))
	}

	if extra != "" {
		b.WriteString(" AND (")
		b.WriteString(extra)
		b.WriteString(")")
	}

	return w.dialect.Rebind(b.String()), nil
}

func (w *Writer) buildInsert(verb, suffix, table string, columns []string, values []any) (string, error) {
	rows, err := rowCount(columns, values)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(" INTO ")
	b.WriteString(w.dialect.QuoteIdentifier(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(adapters.QuoteAll(w.dialect, columns), ", "))
	b.WriteString(") VALUES ")
	writeTuples(&b, rows, len(columns))
	if suffix != "" {
		b.WriteString(" ")
		b.WriteString(suffix)
	}

	return w.dialect.Rebind(b.String()), nil
}

func rowCount(columns []string, values []any) (int, error) {
	if len(columns) == 0 || len(values)%len(columns) != 0 {
		return 0, fmt.Errorf("%w: %d values for %d columns", ErrRowShape, len(values), len(columns))
	}
	return len(values) / len(columns), nil
}

// writeTuples writes "(?,?),(?,?)"
func writeTuples(b *strings.Builder, rows, width int) {
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		writeMarkers(b, width)
		b.WriteByte(')')
	}
}

func writeMarkers(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('?')
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
