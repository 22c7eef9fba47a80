package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationResult classifies the reference problems found in a candidate
// column's rules. Acceptance is all-or-nothing: a single circular or invalid
// reference rejects the whole column definition.
type ValidationResult struct {
	// Circular holds reference tokens that name the candidate column itself.
	Circular []Token
	// Invalid holds reference tokens that name no existing column.
	Invalid []Token
	// Valid holds the remaining reference tokens; these form the candidate's
	// outgoing dependency edges.
	Valid []Token
}

// OK reports whether the candidate's references are acceptable.
func (r ValidationResult) OK() bool {
	return len(r.Circular) == 0 && len(r.Invalid) == 0
}

// ValidateReferences checks every column-reference token in the candidate's
// rule text against the current column-name set. candidateName is the name
// the column will have after the create/edit (covering self-reference on
// create and rename-to-same-name on edit). existingNames is the flat set of
// column names currently defined for the dataset.
//
// The check is local to the candidate: it does not perform transitive cycle
// detection across columns. Cross-column cycles surface later, when a
// generation run computes its evaluation order.
func ValidateReferences(candidateName, rule string, existingNames []string) ValidationResult {
	known := make(map[string]struct{}, len(existingNames))
	for _, n := range existingNames {
		known[n] = struct{}{}
	}

	var result ValidationResult
	for _, tok := range References(rule) {
		switch {
		case tok.Name == candidateName:
			result.Circular = append(result.Circular, tok)
		default:
			if _, ok := known[tok.Name]; ok {
				result.Valid = append(result.Valid, tok)
			} else {
				result.Invalid = append(result.Invalid, tok)
			}
		}
	}
	return result
}

// jsonLeafTypes are the primitive type names accepted as leaves of a JSON
// type-detail schema. Matched case-insensitively.
var jsonLeafTypes = map[string]struct{}{
	"string":  {},
	"number":  {},
	"boolean": {},
	"object":  {},
	"array":   {},
	"null":    {},
}

// ValidateTypeDetails validates the type-detail schema of a JSON column:
// a non-empty JSON object mapping field names to either a primitive type
// name (string/number/boolean/object/array/null) or a nested schema object.
func ValidateTypeDetails(details string) error {
	if strings.TrimSpace(details) == "" {
		return fmt.Errorf("JSON columns require a type-detail schema")
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(details), &schema); err != nil {
		return fmt.Errorf("type-detail schema is not a JSON object: %w", err)
	}
	if len(schema) == 0 {
		return fmt.Errorf("type-detail schema must not be empty")
	}

	return validateSchemaObject(schema, "")
}

func validateSchemaObject(schema map[string]any, path string) error {
	for key, value := range schema {
		fieldPath := key
		if path != "" {
			fieldPath = path + "." + key
		}

		switch v := value.(type) {
		case string:
			if _, ok := jsonLeafTypes[strings.ToLower(v)]; !ok {
				return fmt.Errorf("field %q: unknown type %q", fieldPath, v)
			}
		case map[string]any:
			if len(v) == 0 {
				return fmt.Errorf("field %q: nested schema must not be empty", fieldPath)
			}
			if err := validateSchemaObject(v, fieldPath); err != nil {
				return err
			}
		default:
			return fmt.Errorf("field %q: expected a type name or nested schema, got %T", fieldPath, value)
		}
	}
	return nil
}
