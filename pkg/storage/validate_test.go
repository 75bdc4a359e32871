package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	priceAttr  = Attribute{Code: "price", Backend: "decimal"}
	statusAttr = Attribute{Code: "status", Backend: "int"}
	weightAttr = Attribute{Code: "weight", Backend: "decimal"}
	titleAttr  = Attribute{Code: "meta_title", Backend: "varchar"}
	colorAttr  = Attribute{Code: "color_family", Backend: "varchar"}
	descAttr   = Attribute{Code: "description", Backend: "text"}
)

func TestFieldValidator_BuiltInRules(t *testing.T) {
	v, err := NewFieldValidator(nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		attr    Attribute
		value   string
		wantErr string
	}{
		{"decimal", priceAttr, "12.50", ""},
		{"negative decimal", priceAttr, "-0.0001", ""},
		{"decimal comma", priceAttr, "12,50", "invalid decimal value for price: 12,50"},
		{"decimal too precise", priceAttr, "1.23456", "invalid decimal value for price: 1.23456"},
		{"decimal too large", priceAttr, "123456789", "invalid decimal value for price: 123456789"},
		{"integer", statusAttr, "2", ""},
		{"integer text", statusAttr, "on", "invalid integer value for status: on"},
		{"status out of range", statusAttr, "3", "status must be between 1 and 2: 3"},
		{"varchar at limit", titleAttr, strings.Repeat("é", MaxVarcharLength), ""},
		{"varchar over limit", titleAttr, strings.Repeat("é", MaxVarcharLength+1), "value of meta_title exceeds 255 characters"},
		{"text unlimited", descAttr, strings.Repeat("x", 10*MaxVarcharLength), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.attr, tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestFieldValidator_ExtraRules(t *testing.T) {
	v, err := NewFieldValidator(map[string][]FieldValidationRule{
		"weight":       {{Type: ValidateRange, Param: "0-1000"}},
		"color_family": {{Type: ValidateEnum, Param: "warm, cool"}, {Type: ValidateLength, Param: "4-4"}},
		"meta_title":   {{Type: ValidateRegex, Param: `^[A-Z]`, ErrMsg: "{code} must be capitalized: {value}"}},
		"status":       {{Type: ValidateRange, Param: "2-2"}},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		attr    Attribute
		value   string
		wantErr string
	}{
		{"range ok", weightAttr, "12.5", ""},
		{"range over", weightAttr, "1000.5", "weight must be between 0 and 1000: 1000.5"},
		{"backend first", weightAttr, "heavy", "invalid decimal value for weight: heavy"},
		{"enum ok", colorAttr, "warm", ""},
		{"enum miss", colorAttr, "neon", "value of color_family is not one of [warm, cool]: neon"},
		{"second rule", colorAttr, "cool", ""},
		{"custom message", titleAttr, "shoe", "meta_title must be capitalized: shoe"},
		{"defaults kept", statusAttr, "3", "status must be between 1 and 2: 3"},
		{"extra after defaults", statusAttr, "1", "status must be between 2 and 2: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.attr, tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestFieldValidator_Required(t *testing.T) {
	v, err := NewFieldValidator(map[string][]FieldValidationRule{
		"description": {{Type: ValidateRequired}},
	})
	require.NoError(t, err)

	assert.NoError(t, v.Validate(descAttr, "text"))
	assert.EqualError(t, v.Validate(descAttr, "  "), "description is required")
}

func TestNewFieldValidator_InvalidRegex(t *testing.T) {
	_, err := NewFieldValidator(map[string][]FieldValidationRule{
		"sku": {{Type: ValidateRegex, Param: "[unclosed"}},
	})
	assert.ErrorContains(t, err, "invalid regex pattern")
}

func TestFieldValidator_BadBounds(t *testing.T) {
	v, err := NewFieldValidator(map[string][]FieldValidationRule{
		"weight": {{Type: ValidateRange, Param: "10"}},
	})
	require.NoError(t, err)
	assert.ErrorContains(t, v.Validate(weightAttr, "5"), "expected 'min-max'")
}

func TestParseBounds_NegativeMin(t *testing.T) {
	lo, hi, err := parseBounds("-5-10", parseFloat)
	require.NoError(t, err)
	assert.Equal(t, -5.0, lo)
	assert.Equal(t, 10.0, hi)
}

func TestParseValidationRules(t *testing.T) {
	rules, err := ParseValidationRules(map[string][]string{
		"weight": {"range:0-1000", "required"},
		"size":   {"enum:s,m,l"},
	})
	require.NoError(t, err)
	assert.Equal(t, []FieldValidationRule{
		{Type: ValidateRange, Param: "0-1000"},
		{Type: ValidateRequired},
	}, rules["weight"])
	assert.Equal(t, []FieldValidationRule{{Type: ValidateEnum, Param: "s,m,l"}}, rules["size"])

	_, err = ParseValidationRules(map[string][]string{"weight": {"email"}})
	assert.ErrorContains(t, err, "unknown validation rule type: email")
}

func TestConvertValue(t *testing.T) {
	v, err := NewFieldValidator(nil)
	require.NoError(t, err)

	n, err := convertValue(v, statusAttr, " 2 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	s, err := convertValue(v, priceAttr, "9.99")
	require.NoError(t, err)
	assert.Equal(t, "9.99", s)

	_, err = convertValue(v, Attribute{Code: "sku", Backend: "static"}, "x")
	assert.EqualError(t, err, "attribute cannot be imported: sku (static)")
}
