package storage

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationRule is the kind of a value check
type ValidationRule string

const (
	// ValidateRegex - value must match a regular expression
	ValidateRegex ValidationRule = "regex"
	// ValidateRange - numeric value within "min-max"
	ValidateRange ValidationRule = "range"
	// ValidateEnum - value is one of "a,b,c"
	ValidateEnum ValidationRule = "enum"
	// ValidateRequired - value is not blank
	ValidateRequired ValidationRule = "required"
	// ValidateLength - rune count within "min-max"
	ValidateLength ValidationRule = "length"
)

var validationRules = []ValidationRule{
	ValidateRegex, ValidateRange, ValidateEnum, ValidateRequired, ValidateLength,
}

// FieldValidationRule is one check applied to an attribute value
type FieldValidationRule struct {
	Type  ValidationRule
	Param string
	// ErrMsg replaces the default message. {code} and {value} are expanded.
	ErrMsg string
}

// MaxVarcharLength is the rune limit of varchar attribute values
const MaxVarcharLength = 255

// DecimalPattern matches values that fit decimal(12,4)
const DecimalPattern = `^-?\d{1,8}(\.\d{1,4})?$`

const integerPattern = `^-?\d+$`

// checks every value of a backend type gets before any attribute rule
var backendRules = map[string][]FieldValidationRule{
	"decimal": {{Type: ValidateRegex, Param: DecimalPattern, ErrMsg: "invalid decimal value for {code}: {value}"}},
	"int":     {{Type: ValidateRegex, Param: integerPattern, ErrMsg: "invalid integer value for {code}: {value}"}},
	"varchar": {{Type: ValidateLength, Param: "0-" + strconv.Itoa(MaxVarcharLength)}},
}

// DefaultAttributeRules returns the checks of attributes whose integer
// values are codes rather than free numbers.
func DefaultAttributeRules() map[string][]FieldValidationRule {
	return map[string][]FieldValidationRule{
		"status":     {{Type: ValidateRange, Param: "1-2"}},
		"visibility": {{Type: ValidateRange, Param: "1-4"}},
	}
}

// FieldValidator checks attribute values by backend type and attribute code.
// The first failing rule wins.
type FieldValidator struct {
	attributes map[string][]FieldValidationRule
	regexes    map[string]*regexp.Regexp
}

// NewFieldValidator creates a validator with the backend checks, the
// default attribute checks and the extra rules given per attribute code
func NewFieldValidator(extra map[string][]FieldValidationRule) (*FieldValidator, error) {
	v := &FieldValidator{
		attributes: DefaultAttributeRules(),
		regexes:    make(map[string]*regexp.Regexp),
	}
	for code, rules := range extra {
		v.attributes[code] = append(v.attributes[code], rules...)
	}

	compile := func(rules []FieldValidationRule) error {
		for _, rule := range rules {
			if rule.Type != ValidateRegex || v.regexes[rule.Param] != nil {
				continue
			}
			re, err := regexp.Compile(rule.Param)
			if err != nil {
				return fmt.Errorf("invalid regex pattern '%s': %w", rule.Param, err)
			}
			v.regexes[rule.Param] = re
		}
		return nil
	}
	for _, rules := range backendRules {
		if err := compile(rules); err != nil {
			return nil, err
		}
	}
	for _, rules := range v.attributes {
		if err := compile(rules); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Validate applies the rules of attr's backend and then of attr's code
func (v *FieldValidator) Validate(attr Attribute, value string) error {
	for _, rules := range [][]FieldValidationRule{backendRules[attr.Backend], v.attributes[attr.Code]} {
		for _, rule := range rules {
			if err := v.validateValue(attr.Code, value, rule); err != nil {
				if rule.ErrMsg != "" {
					return errors.New(strings.NewReplacer("{code}", attr.Code, "{value}", value).Replace(rule.ErrMsg))
				}
				return err
			}
		}
	}
	return nil
}

func (v *FieldValidator) validateValue(code, value string, rule FieldValidationRule) error {
	switch rule.Type {
	case ValidateRegex:
		return v.validateRegex(code, value, rule.Param)
	case ValidateRange:
		return validateRange(code, value, rule.Param)
	case ValidateEnum:
		return validateEnum(code, value, rule.Param)
	case ValidateRequired:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", code)
		}
		return nil
	case ValidateLength:
		return validateLength(code, value, rule.Param)
	default:
		return fmt.Errorf("unknown validation rule: %s", rule.Type)
	}
}

func (v *FieldValidator) validateRegex(code, value, pattern string) error {
	re := v.regexes[pattern]
	if re == nil {
		return fmt.Errorf("regex pattern not found: %s", pattern)
	}
	if !re.MatchString(value) {
		return fmt.Errorf("value of %s does not match '%s': %s", code, pattern, value)
	}
	return nil
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// validateRange checks a number against "min-max"; min may be negative
func validateRange(code, value, param string) error {
	min, max, err := parseBounds(param, parseFloat)
	if err != nil {
		return err
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("value of %s is not a number: %s", code, value)
	}
	if n < min || n > max {
		return fmt.Errorf("%s must be between %g and %g: %s", code, min, max, value)
	}
	return nil
}

func validateEnum(code, value, param string) error {
	for _, allowed := range strings.Split(param, ",") {
		if strings.TrimSpace(allowed) == value {
			return nil
		}
	}
	return fmt.Errorf("value of %s is not one of [%s]: %s", code, param, value)
}

// validateLength counts runes, not bytes
func validateLength(code, value, param string) error {
	min, max, err := parseBounds(param, strconv.Atoi)
	if err != nil {
		return err
	}
	n := utf8.RuneCountInString(value)
	switch {
	case n > max:
		return fmt.Errorf("value of %s exceeds %d characters", code, max)
	case n < min:
		return fmt.Errorf("value of %s is shorter than %d characters", code, min)
	}
	return nil
}

// parseBounds splits "min-max". The separator is the first '-' after the
// first character so that a negative min parses.
func parseBounds[T int | float64](param string, parse func(string) (T, error)) (T, T, error) {
	var zero T
	i := -1
	if len(param) > 1 {
		i = strings.Index(param[1:], "-")
	}
	if i < 0 {
		return zero, zero, fmt.Errorf("invalid bounds '%s', expected 'min-max'", param)
	}
	lo, err := parse(param[:i+1])
	if err != nil {
		return zero, zero, fmt.Errorf("invalid min value in '%s'", param)
	}
	hi, err := parse(param[i+2:])
	if err != nil {
		return zero, zero, fmt.Errorf("invalid max value in '%s'", param)
	}
	return lo, hi, nil
}

// ParseValidationRule parses "type:param", e.g. "range:0-150",
// "enum:red,blue" or "required"
func ParseValidationRule(s string) (FieldValidationRule, error) {
	ruleType, param, _ := strings.Cut(s, ":")
	for _, known := range validationRules {
		if ValidationRule(ruleType) == known {
			return FieldValidationRule{Type: known, Param: param}, nil
		}
	}
	return FieldValidationRule{}, fmt.Errorf("unknown validation rule type: %s", ruleType)
}

// ParseValidationRules parses the rules of the import config, keyed by
// attribute code
func ParseValidationRules(raw map[string][]string) (map[string][]FieldValidationRule, error) {
	rules := make(map[string][]FieldValidationRule, len(raw))
	for code, specs := range raw {
		for _, spec := range specs {
			rule, err := ParseValidationRule(spec)
			if err != nil {
				return nil, fmt.Errorf("invalid rule for attribute '%s': %w", code, err)
			}
			rules[code] = append(rules[code], rule)
		}
	}
	return rules, nil
}
