package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ruslano69/productimport/pkg/core/product"
)

// TypeChangePolicy governs updates that change the type of an existing product
type TypeChangePolicy string

const (
	TypeChangeAllowed        TypeChangePolicy = "allowed"
	TypeChangeForbidden      TypeChangePolicy = "forbidden"
	TypeChangeNonDestructive TypeChangePolicy = "non-destructive"
)

// ErrTypeChange is matched by every refused type change
var ErrTypeChange = errors.New("product type change not allowed")

// ParseTypeChangePolicy maps a config value; empty means non-destructive
func ParseTypeChangePolicy(s string) (TypeChangePolicy, error) {
	switch p := TypeChangePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return TypeChangeNonDestructive, nil
	case TypeChangeAllowed, TypeChangeForbidden, TypeChangeNonDestructive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown product type change policy: %s", s)
	}
}

// Check returns an error wrapping ErrTypeChange when from may not become to.
// Non-destructive permits only changes that lose no data: a simple product
// may become configurable, never the other way round.
func (p TypeChangePolicy) Check(from, to product.Kind) error {
	if from == to {
		return nil
	}

	switch p {
	case TypeChangeAllowed:
		return nil
	case TypeChangeNonDestructive:
		if from == product.KindSimple && to == product.KindConfigurable {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrTypeChange, from, to)
}
