// Package adapterstest provides test doubles around adapters.DB.
package adapterstest

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// Statement is one recorded call
type Statement struct {
	Query string
	Args  []any
}

// Recorder wraps a DB and records every statement passed through it.
// A nil inner DB records only; Exec then succeeds with zero affected rows.
type Recorder struct {
	inner adapters.DB

	mu      sync.Mutex
	execs   []Statement
	queries []Statement
}

var _ adapters.DB = (*Recorder)(nil)

// NewRecorder wraps inner
func NewRecorder(inner adapters.DB) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	r.mu.Lock()
	r.execs = append(r.execs, Statement{Query: query, Args: args})
	r.mu.Unlock()
	if r.inner == nil {
		return driverResult{}, nil
	}
	return r.inner.ExecContext(ctx, query, args...)
}

func (r *Recorder) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	r.record(query, args)
	return r.inner.QueryContext(ctx, query, args...)
}

func (r *Recorder) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	r.record(query, args)
	return r.inner.QueryRowContext(ctx, query, args...)
}

func (r *Recorder) record(query string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, Statement{Query: query, Args: args})
}

// Execs returns the recorded Exec calls
func (r *Recorder) Execs() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.execs...)
}

// Queries returns the recorded Query and QueryRow calls
func (r *Recorder) Queries() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Statement(nil), r.queries...)
}

// Count returns the number of statements of any kind containing substr
func (r *Recorder) Count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.execs {
		if strings.Contains(s.Query, substr) {
			n++
		}
	}
	for _, s := range r.queries {
		if strings.Contains(s.Query, substr) {
			n++
		}
	}
	return n
}

// Total returns the number of recorded statements
func (r *Recorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.execs) + len(r.queries)
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = nil
	r.queries = nil
}

type driverResult struct{}

func (driverResult) LastInsertId() (int64, error) { return 0, nil }
func (driverResult) RowsAffected() (int64, error) { return 0, nil }
