package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValidatorFunc converts a raw JSON-decoded value into its typed form, or
// reports why the value does not belong to the type.
type ValidatorFunc func(value any) (any, error)

// Registry dispatches a declared field type to its validator. It is built
// once at startup and read-only afterwards; new primitive types are added by
// registering another validator here, never by modifying existing ones.
type Registry struct {
	validators map[string]ValidatorFunc
}

func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]ValidatorFunc)}
	r.Register("string", validateString)
	r.Register("integer", validateInteger)
	r.Register("float", validateFloat)
	r.Register("boolean", validateBoolean)
	r.Register("datetime", validateDatetime)
	r.Register("list", validateList)
	return r
}

func (r *Registry) Register(typeName string, fn ValidatorFunc) {
	r.validators[normalizeTypeName(typeName)] = fn
}

// Known reports whether typeName has a registered validator.
func (r *Registry) Known(typeName string) bool {
	_, ok := r.validators[normalizeTypeName(typeName)]
	return ok
}

// Validate runs the validator registered for typeName against value.
func (r *Registry) Validate(typeName string, value any) (any, error) {
	fn, ok := r.validators[normalizeTypeName(typeName)]
	if !ok {
		return nil, fmt.Errorf("unsupported field type: %s", typeName)
	}
	return fn(value)
}

// DefaultRegistry holds the built-in primitive types. Constructed once at
// package init; callers must not mutate it after startup.
var DefaultRegistry = NewRegistry()

func normalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// validateString rejects values that look like other primitives smuggled in
// as strings. Anything that parses as a number or equals "true"/"false"
// case-insensitively fails, including numeric-looking strings like "42".
func validateString(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a string")
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return nil, fmt.Errorf("string value cannot be numeric")
	}
	switch strings.ToLower(s) {
	case "true", "false":
		return nil, fmt.Errorf("string value cannot be a boolean")
	}
	return s, nil
}

func validateInteger(value any) (any, error) {
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value is not an integer")
		}
		return n, nil
	case float64:
		// JSON numbers decode as float64; only integral values qualify.
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("value is not an integer")
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return nil, fmt.Errorf("value is not an integer")
	}
}

func validateFloat(value any) (any, error) {
	switch v := value.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("value is not a float")
		}
		return f, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("value is not a float")
	}
}

func validateBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, fmt.Errorf("value is not a boolean")
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func validateDatetime(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a valid datetime")
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("value is not a valid datetime")
}

// validateList accepts a JSON array, a string containing a JSON array, or a
// plain comma-separated string. A string that parses as JSON but is not an
// array (e.g. "{}") fails rather than being comma-split.
func validateList(value any) (any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			if list, ok := parsed.([]any); ok {
				return list, nil
			}
			return nil, fmt.Errorf("value is not a list")
		}
		parts := strings.Split(v, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			items = append(items, strings.TrimSpace(p))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("value is not a list")
	}
}
