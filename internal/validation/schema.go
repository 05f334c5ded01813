package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldSpec is the canonical declaration of one metadata field.
type FieldSpec struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  any    `json:"default,omitempty"`
}

// Schema is the normalized, write-once field contract of a file type. Field
// order follows the registration payload's declaration order, which also
// fixes metadata validation order.
type Schema struct {
	Fields *orderedmap.OrderedMap[string, FieldSpec]
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	s.Fields = orderedmap.New[string, FieldSpec]()
	return json.Unmarshal(data, s.Fields)
}

// RetypeDefaults restores the registration-time Go types of field defaults
// after a JSON round trip, which collapses them to strings and float64s. A
// persisted schema must pass through this before uploads assign defaults, or
// a datetime default would arrive as a plain string and an integer default
// as a float64.
func (s *Schema) RetypeDefaults(registry *Registry) error {
	for pair := s.Fields.Oldest(); pair != nil; pair = pair.Next() {
		spec := pair.Value
		if spec.Default == nil {
			continue
		}
		typed, err := registry.Validate(spec.Type, spec.Default)
		if err != nil {
			return fmt.Errorf("stored default for field '%s' no longer matches type '%s': %v",
				pair.Key, spec.Type, err)
		}
		spec.Default = typed
		s.Fields.Set(pair.Key, spec)
	}
	return nil
}

var (
	// ErrEmptySchema rejects registrations that declare no fields at all.
	ErrEmptySchema = errors.New("schema must declare at least one field")

	// ErrInvalidSchemaDocument rejects payloads that are not a JSON object.
	ErrInvalidSchemaDocument = errors.New("schema is not a JSON object")
)

// SchemaError reports a malformed declaration for one field.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Reason)
}

// NormalizeSchema parses a caller-supplied schema document where each field
// maps to either a bare type name or a {type, required, default} object, and
// produces the canonical Schema. Declared types must be known to the
// registry; defaults, when supplied, must validate against the declared type
// so uploads can assign them verbatim later.
func NormalizeSchema(registry *Registry, raw []byte) (*Schema, error) {
	decls := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, decls); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchemaDocument, err)
	}
	if decls.Len() == 0 {
		return nil, ErrEmptySchema
	}

	schema := &Schema{Fields: orderedmap.New[string, FieldSpec]()}
	for pair := decls.Oldest(); pair != nil; pair = pair.Next() {
		spec, err := normalizeFieldSpec(registry, pair.Key, pair.Value)
		if err != nil {
			return nil, err
		}
		schema.Fields.Set(pair.Key, spec)
	}
	return schema, nil
}

func normalizeFieldSpec(registry *Registry, field string, raw json.RawMessage) (FieldSpec, error) {
	var typeName string
	if err := json.Unmarshal(raw, &typeName); err == nil {
		spec := FieldSpec{Type: normalizeTypeName(typeName)}
		if spec.Type == "" {
			return FieldSpec{}, &SchemaError{Field: field, Reason: "missing 'type'"}
		}
		if !registry.Known(spec.Type) {
			return FieldSpec{}, &SchemaError{Field: field, Reason: fmt.Sprintf("unsupported type '%s'", spec.Type)}
		}
		return spec, nil
	}

	var obj struct {
		Type     string `json:"type"`
		Required bool   `json:"required"`
		Default  any    `json:"default"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return FieldSpec{}, &SchemaError{Field: field, Reason: "spec must be a type name or an object"}
	}
	spec := FieldSpec{
		Type:     normalizeTypeName(obj.Type),
		Required: obj.Required,
		Default:  obj.Default,
	}
	if spec.Type == "" {
		return FieldSpec{}, &SchemaError{Field: field, Reason: "missing 'type'"}
	}
	if !registry.Known(spec.Type) {
		return FieldSpec{}, &SchemaError{Field: field, Reason: fmt.Sprintf("unsupported type '%s'", spec.Type)}
	}
	if spec.Default != nil {
		typed, err := registry.Validate(spec.Type, spec.Default)
		if err != nil {
			return FieldSpec{}, &SchemaError{
				Field:  field,
				Reason: fmt.Sprintf("default does not match type '%s': %v", spec.Type, err),
			}
		}
		spec.Default = typed
	}
	return spec, nil
}
