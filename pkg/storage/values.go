package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// convertValue checks raw against the rules of attr and returns the value
// to store.
func convertValue(v *FieldValidator, attr Attribute, raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	switch attr.Backend {
	case "decimal", "int", "varchar", "text":
	default:
		return nil, fmt.Errorf("attribute cannot be imported: %s (%s)", attr.Code, attr.Backend)
	}

	if err := v.Validate(attr, raw); err != nil {
		return nil, err
	}

	if attr.Backend == "int" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value for %s: %s", attr.Code, raw)
		}
		return n, nil
	}
	return raw, nil
}
