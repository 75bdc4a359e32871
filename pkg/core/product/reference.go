package product

import "strings"

// Reference is a symbolic name (attribute set, category path, sku) that is
// looked up or created later by a resolver.
type Reference struct {
	name string
}

// NewReference trims the name of surrounding whitespace
func NewReference(name string) Reference {
	return Reference{name: strings.TrimSpace(name)}
}

// Name returns the trimmed name
func (r Reference) Name() string { return r.name }

// IsEmpty reports whether the name is empty after trimming
func (r Reference) IsEmpty() bool { return r.name == "" }

func (r Reference) String() string { return r.name }
