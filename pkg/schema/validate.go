package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError describes one schema violation
type ValidationError struct {
	Path    string // JSON path to the invalid field (e.g. "dueDate")
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every violation found in one pass
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range e {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Validate checks raw JSON against the schema. A nil or empty document is
// validated as an empty object so tools with only optional arguments accept
// an absent arguments member.
func (s *Schema) Validate(data json.RawMessage) error {
	var value any = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &value); err != nil {
			return &ValidationError{Message: fmt.Sprintf("invalid JSON: %s", err)}
		}
		if value == nil {
			value = map[string]any{}
		}
	}

	var errs ValidationErrors
	s.validate("", value, &errs)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *Schema) validate(path string, value any, errs *ValidationErrors) {
	if value == nil {
		// null satisfies any optional member
		return
	}

	switch s.Type {
	case TypeObject:
		s.validateObject(path, value, errs)
	case TypeArray:
		s.validateArray(path, value, errs)
	case TypeString:
		s.validateString(path, value, errs)
	case TypeInteger:
		s.validateInteger(path, value, errs)
	case TypeNumber:
		s.validateNumber(path, value, errs)
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, &ValidationError{Path: path,
				Message: fmt.Sprintf("expected boolean, got %T", value)})
		}
	}
}

func (s *Schema) validateObject(path string, value any, errs *ValidationErrors) {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("expected object, got %T", value)})
		return
	}

	for _, req := range s.Required {
		if _, exists := obj[req]; !exists {
			*errs = append(*errs, &ValidationError{Path: joinPath(path, req),
				Message: "required field is missing"})
		}
	}

	for name, propSchema := range s.Properties {
		if val, exists := obj[name]; exists {
			propSchema.validate(joinPath(path, name), val, errs)
		}
	}
}

func (s *Schema) validateArray(path string, value any, errs *ValidationErrors) {
	arr, ok := value.([]any)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("expected array, got %T", value)})
		return
	}

	if s.Items == nil {
		return
	}

	for i, item := range arr {
		s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, errs)
	}
}

func (s *Schema) validateString(path string, value any, errs *ValidationErrors) {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("expected string, got %T", value)})
		return
	}

	if len(s.Enum) == 0 {
		return
	}
	for _, e := range s.Enum {
		if e == str {
			return
		}
	}
	*errs = append(*errs, &ValidationError{Path: path,
		Message: fmt.Sprintf("value must be one of: %v", s.Enum)})
}

func (s *Schema) validateInteger(path string, value any, errs *ValidationErrors) {
	num, ok := value.(float64)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("expected integer, got %T", value)})
		return
	}
	if num != float64(int64(num)) {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: "expected integer, got decimal number"})
		return
	}
	s.validateBounds(path, num, errs)
}

func (s *Schema) validateNumber(path string, value any, errs *ValidationErrors) {
	num, ok := value.(float64)
	if !ok {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("expected number, got %T", value)})
		return
	}
	s.validateBounds(path, num, errs)
}

func (s *Schema) validateBounds(path string, num float64, errs *ValidationErrors) {
	if s.Minimum != nil && num < *s.Minimum {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("value %v is less than minimum %v", num, *s.Minimum)})
	}
	if s.Maximum != nil && num > *s.Maximum {
		*errs = append(*errs, &ValidationError{Path: path,
			Message: fmt.Sprintf("value %v is greater than maximum %v", num, *s.Maximum)})
	}
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
