package skill

import (
	"fmt"
	"strings"
)

// FieldType is the type tag of a declared input field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// Field declares one accepted input field.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// InputSchema declares the input contract of a skill. It is interpreted by a
// generic validator so skills never carry bespoke validation code, and is
// exposed verbatim through listing endpoints as self-documentation.
type InputSchema []Field

// ValidationError reports which declared fields the input violated.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, ", ")
}

// Validate checks input against the schema. Every required field must be
// present and type-compatible. Unknown fields are ignored so callers can add
// fields without breaking older skills.
func (s InputSchema) Validate(input map[string]any) error {
	var bad []string
	for _, f := range s {
		v, ok := input[f.Name]
		if !ok {
			if f.Required {
				bad = append(bad, fmt.Sprintf("%s (missing)", f.Name))
			}
			continue
		}
		if !f.Type.accepts(v) {
			bad = append(bad, fmt.Sprintf("%s (want %s)", f.Name, f.Type))
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// accepts reports whether v is compatible with the field type. JSON decoding
// produces float64 for all numbers, but handlers constructed in-process may
// pass native ints.
func (t FieldType) accepts(v any) bool {
	switch t {
	case FieldString:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}
