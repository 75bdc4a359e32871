package product

import (
	"fmt"
	"strings"
)

// GlobalScope is the key of the store independent FieldSet in StoreViews.
const GlobalScope = "global"

// Kind discriminates the product variants an import can carry.
type Kind int

const (
	KindSimple Kind = iota
	KindConfigurable
)

// String returns the value used in the type attribute and in catalog_product_entity.type_id.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindConfigurable:
		return "configurable"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseKind maps a type attribute value to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.TrimSpace(s) {
	case "simple":
		return KindSimple, true
	case "configurable":
		return KindConfigurable, true
	default:
		return 0, false
	}
}

// Status of a product within a run.
type Status int

const (
	StatusPending Status = iota
	StatusOk
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOk:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// FieldSet holds the attribute values of one scope (global or a store view).
// A value that is present but empty removes the stored value for that scope.
type FieldSet struct {
	values  map[string]string
	options map[string]string
	order   []string
}

// NewFieldSet creates an empty FieldSet
func NewFieldSet() *FieldSet {
	return &FieldSet{
		values:  make(map[string]string),
		options: make(map[string]string),
	}
}

// Set assigns a scalar attribute value
func (fs *FieldSet) Set(code, value string) {
	if _, ok := fs.values[code]; !ok {
		if _, ok := fs.options[code]; !ok {
			fs.order = append(fs.order, code)
		}
	}
	fs.values[code] = value
}

// Get returns a scalar attribute value and whether it was set
func (fs *FieldSet) Get(code string) (string, bool) {
	v, ok := fs.values[code]
	return v, ok
}

// SetOption assigns the option label of a select attribute
func (fs *FieldSet) SetOption(code, label string) {
	if _, ok := fs.options[code]; !ok {
		if _, ok := fs.values[code]; !ok {
			fs.order = append(fs.order, code)
		}
	}
	fs.options[code] = strings.TrimSpace(label)
}

// Option returns the option label of a select attribute
func (fs *FieldSet) Option(code string) (string, bool) {
	v, ok := fs.options[code]
	return v, ok
}

// Codes returns attribute codes in the order they first appeared in the input.
func (fs *FieldSet) Codes() []string {
	return append([]string(nil), fs.order...)
}

// Name returns the name field
func (fs *FieldSet) Name() (string, bool) { return fs.Get("name") }

// Price returns the price field as a decimal string
func (fs *FieldSet) Price() (string, bool) { return fs.Get("price") }

// Len returns the number of attributes in the set
func (fs *FieldSet) Len() int { return len(fs.order) }

// Product is one catalog record read from the input.
type Product struct {
	sku          string
	Kind         Kind
	AttributeSet Reference
	Line         int

	storeViews map[string]*FieldSet

	Categories      []Reference
	SuperAttributes []string
	Variants        []Reference

	errors []string
	status Status
}

// NewProduct creates a pending product. The sku is trimmed and never changes afterwards.
func NewProduct(sku string, kind Kind, attributeSet Reference, line int) *Product {
	return &Product{
		sku:          strings.TrimSpace(sku),
		Kind:         kind,
		AttributeSet: attributeSet,
		Line:         line,
		storeViews:   make(map[string]*FieldSet),
		status:       StatusPending,
	}
}

// SKU returns the natural key of the product
func (p *Product) SKU() string { return p.sku }

// Global returns the store independent FieldSet, creating it on first use.
func (p *Product) Global() *FieldSet { return p.StoreView(GlobalScope) }

// StoreView returns the FieldSet of a store view code, creating it on first use.
func (p *Product) StoreView(code string) *FieldSet {
	fs, ok := p.storeViews[code]
	if !ok {
		fs = NewFieldSet()
		p.storeViews[code] = fs
	}
	return fs
}

// HasScope reports whether a FieldSet was opened for the code
func (p *Product) HasScope(code string) bool {
	_, ok := p.storeViews[code]
	return ok
}

// StoreViews returns all FieldSets keyed by store view code, "global" included.
func (p *Product) StoreViews() map[string]*FieldSet { return p.storeViews }

// AddError records a validation error; the product is failed from now on.
func (p *Product) AddError(msg string) {
	p.errors = append(p.errors, msg)
	p.status = StatusFailed
}

// AddErrorf is AddError with formatting
func (p *Product) AddErrorf(format string, args ...any) {
	p.AddError(fmt.Sprintf(format, args...))
}

// Errors returns the validation errors in the order they were added
func (p *Product) Errors() []string { return append([]string(nil), p.errors...) }

// OK reports whether no validation error was recorded.
func (p *Product) OK() bool { return len(p.errors) == 0 }

// Status returns the current outcome
func (p *Product) Status() Status { return p.status }

// MarkOk flags a product without errors as durably written.
func (p *Product) MarkOk() {
	if len(p.errors) == 0 {
		p.status = StatusOk
	}
}

func (p *Product) String() string {
	return fmt.Sprintf("%s %q (line %d)", p.Kind, p.sku, p.Line)
}
