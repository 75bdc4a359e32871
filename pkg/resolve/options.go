package resolve

import (
	"context"
	"fmt"

	"github.com/ruslano69/productimport/pkg/adapters"
	"github.com/ruslano69/productimport/pkg/bulk"
)

// OptionResolver resolves admin option labels of select attributes.
// Options of an attribute are loaded on first use and cached per run.
type OptionResolver struct {
	db     adapters.DB
	d      adapters.Dialect
	writer *bulk.Writer

	attributes map[string]int64
	autoCreate map[string]bool

	options   map[int64]map[string]int64
	sortOrder map[int64]int
	created   int
}

// NewOptionResolver creates a resolver for the select attributes in
// attributes (code to attribute id). Labels missing for a code in
// autoCreate are created instead of reported.
func NewOptionResolver(db adapters.DB, d adapters.Dialect, attributes map[string]int64, autoCreate []string) *OptionResolver {
	auto := make(map[string]bool, len(autoCreate))
	for _, code := range autoCreate {
		auto[code] = true
	}
	return &OptionResolver{
		db:         db,
		d:          d,
		writer:     bulk.NewWriter(db, d),
		attributes: attributes,
		autoCreate: auto,
		options:    make(map[int64]map[string]int64),
		sortOrder:  make(map[int64]int),
	}
}

// ResolveOption returns the option id of label for the attribute code.
// A miss reads "option not found: {code}={label}".
func (r *OptionResolver) ResolveOption(ctx context.Context, code, label string) (int64, error) {
	attributeID, ok := r.attributes[code]
	if !ok {
		return NotFound, &NotFoundError{Kind: "select attribute", Name: code}
	}

	options, err := r.load(ctx, attributeID)
	if err != nil {
		return NotFound, err
	}
	if id, ok := options[label]; ok {
		return id, nil
	}

	if !r.autoCreate[code] {
		return NotFound, &NotFoundError{Kind: "option", Name: code + "=" + label}
	}
	return r.create(ctx, attributeID, label)
}

// ForAttribute binds the resolver to one attribute code
func (r *OptionResolver) ForAttribute(code string) Resolver {
	return attributeOptions{r: r, code: code}
}

// Created returns the number of options created so far
func (r *OptionResolver) Created() int { return r.created }

func (r *OptionResolver) load(ctx context.Context, attributeID int64) (map[string]int64, error) {
	if options, ok := r.options[attributeID]; ok {
		return options, nil
	}

	rows, err := r.db.QueryContext(ctx, r.d.Rebind(`SELECT o.option_id, o.sort_order, v.value
		FROM eav_attribute_option o
		JOIN eav_attribute_option_value v ON v.option_id = o.option_id AND v.store_id = 0
		WHERE o.attribute_id = ?`), attributeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load options of attribute %d: %w", attributeID, err)
	}
	defer rows.Close()

	options := make(map[string]int64)
	maxOrder := 0
	for rows.Next() {
		var id int64
		var order int
		var label string
		if err := rows.Scan(&id, &order, &label); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		// the first option wins when admin labels repeat
		if _, dup := options[label]; !dup {
			options[label] = id
		}
		if order > maxOrder {
			maxOrder = order
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}

	r.options[attributeID] = options
	r.sortOrder[attributeID] = maxOrder
	return options, nil
}

func (r *OptionResolver) create(ctx context.Context, attributeID int64, label string) (int64, error) {
	order := r.sortOrder[attributeID] + 1

	id, err := r.d.InsertReturningID(ctx, r.db,
		r.d.Rebind(`INSERT INTO eav_attribute_option (attribute_id, sort_order) VALUES (?, ?)`),
		"option_id", attributeID, order)
	if err != nil {
		return NotFound, fmt.Errorf("failed to create option %q: %w", label, err)
	}

	err = r.writer.Insert(ctx, "eav_attribute_option_value",
		[]string{"option_id", "store_id", "value"}, []any{id, 0, label})
	if err != nil {
		return NotFound, fmt.Errorf("failed to create option %q: %w", label, err)
	}

	r.options[attributeID][label] = id
	r.sortOrder[attributeID] = order
	r.created++
	return id, nil
}

type attributeOptions struct {
	r    *OptionResolver
	code string
}

func (a attributeOptions) Resolve(ctx context.Context, label string) (int64, error) {
	return a.r.ResolveOption(ctx, a.code, label)
}
