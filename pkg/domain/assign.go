package domain

import "strings"

// AssignKind selects how an assignment computes its value.
type AssignKind string

const (
	// AssignLiteral copies a constant value verbatim.
	AssignLiteral AssignKind = "literal"
	// AssignPayload resolves a dot-path against the event payload. A path
	// miss leaves the field unchanged.
	AssignPayload AssignKind = "payload"
	// AssignAppend appends a resolved source value to the field's current
	// sequence (treated as empty when absent or not a sequence). Used for
	// multi-select accumulation, typically on self-loop transitions.
	AssignAppend AssignKind = "append"
)

// AssignSpec computes a new value for one form field. For AssignAppend the
// source is Path when set, Literal otherwise.
type AssignSpec struct {
	Kind    AssignKind `json:"kind" yaml:"kind"`
	Literal any        `json:"literal,omitempty" yaml:"literal,omitempty"`
	Path    string     `json:"path,omitempty" yaml:"path,omitempty"`
}

// Assignment pairs a field name with its spec. A transition carries an
// ordered list of assignments; later entries observe values staged by
// earlier ones, so derived fields work.
type Assignment struct {
	Field string     `json:"field" yaml:"field"`
	Spec  AssignSpec `json:"spec" yaml:"spec"`
}

// stagedWrite is a resolved, validated value waiting to be committed.
type stagedWrite struct {
	fieldID string
	value   any
}

// resolveAssignments runs the assignment list in declared order and returns
// the writes to commit. Every value is validated before anything is written,
// so a validation failure leaves the form untouched.
func resolveAssignments(assigns []Assignment, form *FormInstance, payload map[string]any) ([]stagedWrite, error) {
	var writes []stagedWrite
	staged := make(map[string]any)

	current := func(fieldID string) any {
		if v, ok := staged[fieldID]; ok {
			return v
		}
		if state, ok := form.Fields[fieldID]; ok {
			return state.Value
		}
		return nil
	}

	for _, a := range assigns {
		def, ok := form.Schema.FieldByName(a.Field)
		if !ok {
			return nil, &FieldValidationError{Field: a.Field, Reasons: []string{"field is not defined in the form schema"}}
		}

		var value any
		switch a.Spec.Kind {
		case AssignLiteral:
			value = a.Spec.Literal
		case AssignPayload:
			resolved, found := lookupPath(payload, a.Spec.Path)
			if !found {
				continue
			}
			value = resolved
		case AssignAppend:
			source, found := resolveSource(a.Spec, payload)
			if !found {
				continue
			}
			seq, _ := asSequence(current(def.ID))
			next := make([]any, 0, len(seq)+1)
			next = append(next, seq...)
			value = append(next, source)
		default:
			return nil, &FieldValidationError{Field: a.Field, Reasons: []string{"unknown assignment kind " + string(a.Spec.Kind)}}
		}

		if err := form.Check(def.ID, value); err != nil {
			return nil, err
		}
		staged[def.ID] = value
		writes = append(writes, stagedWrite{fieldID: def.ID, value: value})
	}
	return writes, nil
}

// resolveSource picks the append source: payload path when set, else literal.
// A literal nil counts as unresolved so the append is skipped.
func resolveSource(spec AssignSpec, payload map[string]any) (any, bool) {
	if spec.Path != "" {
		return lookupPath(payload, spec.Path)
	}
	if spec.Literal == nil {
		return nil, false
	}
	return spec.Literal, true
}

// lookupPath resolves a dot-path like "user.address.city" against a nested
// payload of string-keyed maps.
func lookupPath(payload map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = payload
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
