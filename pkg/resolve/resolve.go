// Package resolve maps symbolic names from the import (store view codes,
// attribute set names, category paths, option labels) to surrogate ids.
// Every resolver is owned by one run; its caches are never shared.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruslano69/productimport/pkg/adapters"
)

// NotFound is the id returned by NameConverter.Convert on a miss
const NotFound int64 = 0

var (
	// ErrNotFound is matched by every lookup miss
	ErrNotFound = errors.New("not found")

	// ErrRequestPathTaken means a new category would reuse an existing URL rewrite
	ErrRequestPathTaken = errors.New("request path already taken")

	// ErrConcurrentCreate means another writer created the same entity during the run
	ErrConcurrentCreate = errors.New("concurrent create")
)

// Resolver resolves one name to an id
type Resolver interface {
	Resolve(ctx context.Context, name string) (int64, error)
}

// NotFoundError is a lookup miss. Its text is "{kind} not found: {name}".
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// Is makes errors.Is(err, ErrNotFound) hold
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsRecordError reports whether err only concerns the record being resolved.
// Anything else aborts the run.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRequestPathTaken)
}

// NameConverter is a preloaded name to id map
type NameConverter struct {
	kind string
	ids  map[string]int64
}

// NewNameConverter wraps an existing mapping
func NewNameConverter(kind string, ids map[string]int64) *NameConverter {
	if ids == nil {
		ids = make(map[string]int64)
	}
	return &NameConverter{kind: kind, ids: ids}
}

// LoadNameConverter builds the mapping from a query returning (name, id) rows.
// query is written with ? markers.
func LoadNameConverter(ctx context.Context, db adapters.DB, d adapters.Dialect, kind, query string, args ...any) (*NameConverter, error) {
	rows, err := db.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s names: %w", kind, err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("failed to scan %s name: %w", kind, err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s names: %w", kind, err)
	}

	return NewNameConverter(kind, ids), nil
}

// Convert returns the id of name, or NotFound
func (c *NameConverter) Convert(name string) int64 {
	if id, ok := c.ids[name]; ok {
		return id
	}
	return NotFound
}

// Lookup returns the id of name and whether it is known. Unlike Convert it
// distinguishes a miss from a legitimate zero id (the admin store).
func (c *NameConverter) Lookup(name string) (int64, bool) {
	id, ok := c.ids[name]
	return id, ok
}

// Resolve implements Resolver
func (c *NameConverter) Resolve(_ context.Context, name string) (int64, error) {
	id, ok := c.ids[name]
	if !ok {
		return NotFound, &NotFoundError{Kind: c.kind, Name: name}
	}
	return id, nil
}

// Len returns the number of known names
func (c *NameConverter) Len() int { return len(c.ids) }

// AttributeSetResolver resolves attribute set names of one entity type
type AttributeSetResolver struct {
	names *NameConverter
}

// LoadAttributeSets reads the attribute sets of entityTypeID
func LoadAttributeSets(ctx context.Context, db adapters.DB, d adapters.Dialect, entityTypeID int64) (*AttributeSetResolver, error) {
	names, err := LoadNameConverter(ctx, db, d, "attribute set",
		`SELECT attribute_set_name, attribute_set_id FROM eav_attribute_set WHERE entity_type_id = ?`, entityTypeID)
	if err != nil {
		return nil, err
	}
	return &AttributeSetResolver{names: names}, nil
}

// Resolve returns the set id; a miss reads "attribute set not found: {name}"
func (r *AttributeSetResolver) Resolve(ctx context.Context, name string) (int64, error) {
	return r.names.Resolve(ctx, name)
}
