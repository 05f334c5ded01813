package validation

import "fmt"

// ValidateMetadata checks a raw metadata object against the schema, field by
// field in declaration order. Failures accumulate per field so the caller
// sees every offending field at once; a non-empty error map means the input
// is rejected as a whole. Input keys not declared in the schema are dropped
// silently; the schema is a whitelist.
func ValidateMetadata(registry *Registry, schema *Schema, input map[string]any) (map[string]any, map[string]string) {
	validated := make(map[string]any, schema.Fields.Len())
	errs := make(map[string]string)

	for pair := schema.Fields.Oldest(); pair != nil; pair = pair.Next() {
		field, spec := pair.Key, pair.Value
		raw, present := input[field]
		if !present || raw == nil {
			if spec.Required && spec.Default == nil {
				errs[field] = "required but missing"
				continue
			}
			if spec.Default != nil {
				// Defaults were type-checked at registration; assign verbatim.
				validated[field] = spec.Default
				continue
			}
			validated[field] = nil
			continue
		}

		typed, err := registry.Validate(spec.Type, raw)
		if err != nil {
			errs[field] = fmt.Sprintf("invalid value '%v' for field '%s' of type '%s'", raw, field, spec.Type)
			continue
		}
		validated[field] = typed
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return validated, nil
}
