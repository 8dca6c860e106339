package domain

import (
	"fmt"
	"reflect"
	"regexp"
)

// FieldType constrains the values a form field accepts.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
)

// Validation holds the per-field rules applied on every write.
// Zero values mean "rule not set".
type Validation struct {
	Required  bool   `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength int    `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// FieldDefinition describes one entry of a form schema.
type FieldDefinition struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Type       FieldType   `json:"type" yaml:"type"`
	Label      string      `json:"label,omitempty" yaml:"label,omitempty"`
	Validation *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options    []any       `json:"options,omitempty" yaml:"options,omitempty"`
	Default    any         `json:"default,omitempty" yaml:"default,omitempty"`
}

// DataName returns the key under which the field appears in FormInstance.Data.
func (f *FieldDefinition) DataName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.ID
}

// FormSchema is an ordered list of field definitions. Order is presentation
// order; it does not affect the transition algorithm.
type FormSchema []FieldDefinition

// FieldByID resolves a definition by its id.
func (s FormSchema) FieldByID(id string) (*FieldDefinition, bool) {
	for i := range s {
		if s[i].ID == id {
			return &s[i], true
		}
	}
	return nil, false
}

// FieldByName resolves a definition by its data name, falling back to id.
func (s FormSchema) FieldByName(name string) (*FieldDefinition, bool) {
	for i := range s {
		if s[i].DataName() == name {
			return &s[i], true
		}
	}
	return s.FieldByID(name)
}

// Validate checks the schema itself (not values): unique ids, known types,
// compilable patterns. Returns a list of human-readable reasons.
func (s FormSchema) Validate() []string {
	var reasons []string
	seen := make(map[string]bool, len(s))
	for i := range s {
		f := &s[i]
		if f.ID == "" {
			reasons = append(reasons, fmt.Sprintf("field %d is missing an id", i))
			continue
		}
		if seen[f.ID] {
			reasons = append(reasons, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = true
		switch f.Type {
		case FieldString, FieldNumber, FieldBoolean, FieldArray, "":
		default:
			reasons = append(reasons, fmt.Sprintf("field %q has unknown type %q", f.ID, f.Type))
		}
		if f.Validation != nil && f.Validation.Pattern != "" {
			if _, err := regexp.Compile(f.Validation.Pattern); err != nil {
				reasons = append(reasons, fmt.Sprintf("field %q has an invalid pattern: %v", f.ID, err))
			}
		}
	}
	return reasons
}

// Clone returns a deep copy of the schema.
func (s FormSchema) Clone() FormSchema {
	if s == nil {
		return nil
	}
	out := make(FormSchema, len(s))
	copy(out, s)
	for i := range out {
		if s[i].Validation != nil {
			v := *s[i].Validation
			out[i].Validation = &v
		}
		out[i].Options = append([]any(nil), s[i].Options...)
	}
	return out
}

// FieldState is the stored per-field runtime state of a form instance.
type FieldState struct {
	Value   any      `json:"value"`
	Valid   bool     `json:"valid"`
	Errors  []string `json:"errors,omitempty"`
	Touched bool     `json:"touched"`
}

// FormInstance holds the live values of one conversation's form. Writes go
// through Set, which re-runs the field's validation rules.
type FormInstance struct {
	ID     string                 `json:"id"`
	Schema FormSchema             `json:"schema"`
	Fields map[string]*FieldState `json:"fields"`
}

// NewFormInstance initializes every field with its default (or nil).
func NewFormInstance(id string, schema FormSchema) *FormInstance {
	fields := make(map[string]*FieldState, len(schema))
	for i := range schema {
		fields[schema[i].ID] = &FieldState{
			Value: schema[i].Default,
			Valid: true,
		}
	}
	return &FormInstance{ID: id, Schema: schema, Fields: fields}
}

// Get returns the current value of a field by id.
func (f *FormInstance) Get(fieldID string) (any, error) {
	state, ok := f.Fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", fieldID, ErrUnknownField)
	}
	return state.Value, nil
}

// Set validates and stores a field value. The stored state always reflects
// the write (value, validity, errors, touched), and an invalid value is also
// reported as a *FieldValidationError.
func (f *FormInstance) Set(fieldID string, value any) error {
	def, ok := f.Schema.FieldByID(fieldID)
	if !ok {
		return fmt.Errorf("set %q: %w", fieldID, ErrUnknownField)
	}
	reasons := def.validateValue(value)
	f.Fields[fieldID] = &FieldState{
		Value:   value,
		Valid:   len(reasons) == 0,
		Errors:  reasons,
		Touched: true,
	}
	if len(reasons) > 0 {
		return &FieldValidationError{Field: fieldID, Value: value, Reasons: reasons}
	}
	return nil
}

// Check runs a field's validation rules without writing anything.
func (f *FormInstance) Check(fieldID string, value any) error {
	def, ok := f.Schema.FieldByID(fieldID)
	if !ok {
		return fmt.Errorf("check %q: %w", fieldID, ErrUnknownField)
	}
	if reasons := def.validateValue(value); len(reasons) > 0 {
		return &FieldValidationError{Field: fieldID, Value: value, Reasons: reasons}
	}
	return nil
}

// Data projects the form as a plain name->value map for templating.
func (f *FormInstance) Data() map[string]any {
	data := make(map[string]any, len(f.Schema))
	for i := range f.Schema {
		if state, ok := f.Fields[f.Schema[i].ID]; ok {
			data[f.Schema[i].DataName()] = state.Value
		}
	}
	return data
}

// IsComplete reports whether every required field holds a non-empty value.
func (f *FormInstance) IsComplete() bool {
	for i := range f.Schema {
		def := &f.Schema[i]
		if def.Validation == nil || !def.Validation.Required {
			continue
		}
		state, ok := f.Fields[def.ID]
		if !ok || isEmptyValue(state.Value) {
			return false
		}
	}
	return true
}

// IsValid reports whether every stored field passed its last validation.
func (f *FormInstance) IsValid() bool {
	for _, state := range f.Fields {
		if !state.Valid {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the instance.
func (f *FormInstance) Clone() *FormInstance {
	if f == nil {
		return nil
	}
	fields := make(map[string]*FieldState, len(f.Fields))
	for id, state := range f.Fields {
		s := *state
		s.Errors = append([]string(nil), state.Errors...)
		fields[id] = &s
	}
	return &FormInstance{ID: f.ID, Schema: f.Schema.Clone(), Fields: fields}
}

func (d *FieldDefinition) validateValue(value any) []string {
	var reasons []string

	if isEmptyValue(value) {
		if d.Validation != nil && d.Validation.Required {
			reasons = append(reasons, "value is required")
		}
		// Empty and not required: remaining rules do not apply.
		return reasons
	}

	switch d.Type {
	case FieldString:
		if _, ok := value.(string); !ok {
			reasons = append(reasons, fmt.Sprintf("expected string, got %T", value))
		}
	case FieldNumber:
		switch value.(type) {
		case int, int8, int16, int32, int64, float32, float64:
		default:
			reasons = append(reasons, fmt.Sprintf("expected number, got %T", value))
		}
	case FieldBoolean:
		if _, ok := value.(bool); !ok {
			reasons = append(reasons, fmt.Sprintf("expected boolean, got %T", value))
		}
	case FieldArray:
		if _, ok := asSequence(value); !ok {
			reasons = append(reasons, fmt.Sprintf("expected array, got %T", value))
		}
	}
	if len(reasons) > 0 {
		return reasons
	}

	if v := d.Validation; v != nil {
		if length, ok := lengthOf(value); ok {
			if v.MinLength > 0 && length < v.MinLength {
				reasons = append(reasons, fmt.Sprintf("length %d is below minimum %d", length, v.MinLength))
			}
			if v.MaxLength > 0 && length > v.MaxLength {
				reasons = append(reasons, fmt.Sprintf("length %d exceeds maximum %d", length, v.MaxLength))
			}
		}
		if v.Pattern != "" {
			if str, ok := value.(string); ok {
				re, err := regexp.Compile(v.Pattern)
				if err != nil {
					reasons = append(reasons, fmt.Sprintf("invalid pattern: %v", err))
				} else if !re.MatchString(str) {
					reasons = append(reasons, fmt.Sprintf("value does not match pattern %q", v.Pattern))
				}
			}
		}
	}

	if len(d.Options) > 0 {
		if seq, ok := asSequence(value); ok {
			for _, elem := range seq {
				if !optionAllowed(d.Options, elem) {
					reasons = append(reasons, fmt.Sprintf("value %v is not an allowed option", elem))
				}
			}
		} else if !optionAllowed(d.Options, value) {
			reasons = append(reasons, fmt.Sprintf("value %v is not an allowed option", value))
		}
	}

	return reasons
}

func optionAllowed(options []any, value any) bool {
	for _, opt := range options {
		if valuesEqual(opt, value) {
			return true
		}
	}
	return false
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len(v), true
	default:
		if seq, ok := asSequence(value); ok {
			return len(seq), true
		}
	}
	return 0, false
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	default:
		if seq, ok := asSequence(value); ok {
			return len(seq) == 0
		}
	}
	return false
}

// valuesEqual is the comparison used by guards and option checks. It compares
// structurally and bridges the int/float64 gap introduced by JSON decoding.
func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asSequence normalizes any slice or array value to []any.
func asSequence(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if seq, ok := value.([]any); ok {
		return seq, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
