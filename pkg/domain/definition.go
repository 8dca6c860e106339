package domain

import "fmt"

// PersonaDefinition is the immutable blueprint of a bot: a state graph, a
// form schema and a view map. Construction validates every cross-structure
// invariant; an instance that exists is consistent.
type PersonaDefinition struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	StateGraph StateGraph `json:"state_graph" yaml:"state_graph"`
	FormSchema FormSchema `json:"form_schema" yaml:"form_schema"`
	ViewMap    ViewMap    `json:"view_map" yaml:"view_map"`
}

// NewPersonaDefinition validates and assembles a persona definition.
// On any invariant violation it returns a *DefinitionError listing every
// reason found, and nothing may be persisted.
func NewPersonaDefinition(id, name string, graph StateGraph, schema FormSchema, viewMap ViewMap) (*PersonaDefinition, error) {
	var reasons []string

	if name == "" {
		reasons = append(reasons, "persona name is required")
	}
	reasons = append(reasons, graph.Validate()...)
	reasons = append(reasons, schema.Validate()...)

	// Every graph state needs exactly one view node; extra nodes would be
	// silently dead, so they are rejected too.
	counts := make(map[string]int, len(viewMap.Nodes))
	for i := range viewMap.Nodes {
		counts[viewMap.Nodes[i].StateID]++
	}
	for _, state := range graph.States {
		switch counts[state] {
		case 0:
			reasons = append(reasons, fmt.Sprintf("state %q has no view node", state))
		case 1:
		default:
			reasons = append(reasons, fmt.Sprintf("state %q has %d view nodes, want exactly one", state, counts[state]))
		}
	}
	for stateID := range counts {
		if !graph.HasState(stateID) {
			reasons = append(reasons, fmt.Sprintf("view node references unknown state %q", stateID))
		}
	}

	if len(reasons) > 0 {
		return nil, &DefinitionError{Persona: name, Reasons: reasons}
	}

	return &PersonaDefinition{
		ID:         id,
		Name:       name,
		StateGraph: graph.Clone(),
		FormSchema: schema.Clone(),
		ViewMap:    viewMap.Clone(),
	}, nil
}
