package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Common component types. Channel adapters translate these into native UI
// primitives; the engine treats them as opaque strings.
const (
	ComponentMessage     = "message"
	ComponentButton      = "button"
	ComponentCard        = "card"
	ComponentProductCard = "product-card"
)

// ComponentDescriptor is one UI element of a state's view. Property values
// may contain {{field}} placeholders resolved against the form data.
type ComponentDescriptor struct {
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// ViewNode binds a state id to its ordered component list.
type ViewNode struct {
	StateID    string                `json:"state_id" yaml:"state_id"`
	Components []ComponentDescriptor `json:"components" yaml:"components"`
}

// ViewMap holds one view node per state of the graph.
type ViewMap struct {
	Nodes []ViewNode `json:"nodes" yaml:"nodes"`
}

// Node returns the view node for a state id.
func (m *ViewMap) Node(stateID string) (*ViewNode, bool) {
	for i := range m.Nodes {
		if m.Nodes[i].StateID == stateID {
			return &m.Nodes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the view map.
func (m *ViewMap) Clone() ViewMap {
	out := ViewMap{}
	if m.Nodes == nil {
		return out
	}
	out.Nodes = make([]ViewNode, len(m.Nodes))
	for i := range m.Nodes {
		node := ViewNode{StateID: m.Nodes[i].StateID}
		node.Components = make([]ComponentDescriptor, len(m.Nodes[i].Components))
		for j, comp := range m.Nodes[i].Components {
			cloned := ComponentDescriptor{Type: comp.Type}
			if comp.Properties != nil {
				cloned.Properties = cloneValue(comp.Properties).(map[string]any)
			}
			node.Components[j] = cloned
		}
		out.Nodes[i] = node
	}
	return out
}

// ResolvedView is the presentation-ready output for one state: the ordered
// component list with all placeholders substituted.
type ResolvedView struct {
	StateID    string                `json:"state_id"`
	Components []ComponentDescriptor `json:"components"`
}

// placeholderPattern matches the single supported substitution convention,
// {{field}}. See DESIGN.md for why the context.field form was not kept.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Resolve builds the presentation view for a state. The state must have a
// view node; persona construction guarantees that for every graph state.
func (m *ViewMap) Resolve(stateID string, data map[string]any) (*ResolvedView, error) {
	node, ok := m.Node(stateID)
	if !ok {
		return nil, fmt.Errorf("no view node for state %q", stateID)
	}
	view := &ResolvedView{
		StateID:    stateID,
		Components: make([]ComponentDescriptor, len(node.Components)),
	}
	for i, comp := range node.Components {
		resolved := ComponentDescriptor{Type: comp.Type}
		if comp.Properties != nil {
			resolved.Properties = substituteValue(comp.Properties, data).(map[string]any)
		}
		view.Components[i] = resolved
	}
	return view, nil
}

// substituteValue walks a property value and substitutes placeholders in
// every string it contains. A string that is exactly one placeholder is
// replaced by the raw field value, preserving its type; placeholders
// embedded in longer text are rendered with %v. Unknown fields are left as
// literal placeholder text.
func substituteValue(value any, data map[string]any) any {
	switch v := value.(type) {
	case string:
		return substituteString(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = substituteValue(elem, data)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = substituteValue(elem, data)
		}
		return out
	default:
		return value
	}
}

func substituteString(s string, data map[string]any) any {
	match := placeholderPattern.FindStringSubmatch(s)
	if match == nil {
		return s
	}
	if match[0] == strings.TrimSpace(s) {
		if v, ok := data[match[1]]; ok {
			return v
		}
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(ph string) string {
		name := placeholderPattern.FindStringSubmatch(ph)[1]
		if v, ok := data[name]; ok {
			return fmt.Sprintf("%v", v)
		}
		return ph
	})
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = cloneValue(elem)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return value
	}
}
