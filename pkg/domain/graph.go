package domain

import "fmt"

// Operator is the comparison applied by a transition guard.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEquals Operator = "not_equals"
	OpContains  Operator = "contains"
)

// Guard gates a transition on a form field's current value.
type Guard struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// Evaluate applies the guard against the form. A nil guard always passes.
// A guard naming a field the schema does not know evaluates to false, so
// definitions can add optional guarded branches safely.
func (g *Guard) Evaluate(form *FormInstance) bool {
	if g == nil {
		return true
	}
	def, ok := form.Schema.FieldByName(g.Field)
	if !ok {
		return false
	}
	state, ok := form.Fields[def.ID]
	if !ok {
		return false
	}
	switch g.Operator {
	case OpEquals:
		return valuesEqual(state.Value, g.Value)
	case OpNotEquals:
		return !valuesEqual(state.Value, g.Value)
	case OpContains:
		seq, ok := asSequence(state.Value)
		if !ok {
			return false
		}
		for _, elem := range seq {
			if valuesEqual(elem, g.Value) {
				return true
			}
		}
		return false
	}
	return false
}

// Transition is an edge of the state graph, taken on a named event.
type Transition struct {
	From   string       `json:"from" yaml:"from"`
	Event  string       `json:"event" yaml:"event"`
	To     string       `json:"to" yaml:"to"`
	Guard  *Guard       `json:"guard,omitempty" yaml:"guard,omitempty"`
	Assign []Assignment `json:"assign,omitempty" yaml:"assign,omitempty"`
}

// StateGraph holds the persona's states and ordered transition list.
// Declaration order of Transitions is significant: it is the tie-break order
// when several transitions match the same state and event.
type StateGraph struct {
	InitialState string       `json:"initial_state" yaml:"initial_state"`
	States       []string     `json:"states" yaml:"states"`
	Transitions  []Transition `json:"transitions" yaml:"transitions"`
}

// HasState reports whether id is one of the graph's states.
func (g *StateGraph) HasState(id string) bool {
	for _, s := range g.States {
		if s == id {
			return true
		}
	}
	return false
}

// FindTransitions returns, in declaration order, every transition leaving
// stateID on event.
func (g *StateGraph) FindTransitions(stateID, event string) []Transition {
	var out []Transition
	for i := range g.Transitions {
		if g.Transitions[i].From == stateID && g.Transitions[i].Event == event {
			out = append(out, g.Transitions[i])
		}
	}
	return out
}

// IsTerminal reports whether stateID has no outgoing transitions.
func (g *StateGraph) IsTerminal(stateID string) bool {
	for i := range g.Transitions {
		if g.Transitions[i].From == stateID {
			return false
		}
	}
	return true
}

// Validate checks the graph's structural invariants and returns the reasons
// it is invalid, if any.
func (g *StateGraph) Validate() []string {
	var reasons []string
	if len(g.States) == 0 {
		reasons = append(reasons, "state graph has no states")
	}
	seen := make(map[string]bool, len(g.States))
	for _, s := range g.States {
		if seen[s] {
			reasons = append(reasons, fmt.Sprintf("duplicate state %q", s))
		}
		seen[s] = true
	}
	if g.InitialState == "" {
		reasons = append(reasons, "initial state is not set")
	} else if !seen[g.InitialState] {
		reasons = append(reasons, fmt.Sprintf("initial state %q is not a declared state", g.InitialState))
	}
	for i := range g.Transitions {
		t := &g.Transitions[i]
		if !seen[t.From] {
			reasons = append(reasons, fmt.Sprintf("transition %d (%s) leaves unknown state %q", i, t.Event, t.From))
		}
		if !seen[t.To] {
			reasons = append(reasons, fmt.Sprintf("transition %d (%s) targets unknown state %q", i, t.Event, t.To))
		}
		if t.Event == "" {
			reasons = append(reasons, fmt.Sprintf("transition %d from %q has no event name", i, t.From))
		}
	}
	return reasons
}

// Clone returns a deep copy of the graph, used to snapshot it into a
// conversation at start time.
func (g *StateGraph) Clone() StateGraph {
	out := StateGraph{
		InitialState: g.InitialState,
		States:       append([]string(nil), g.States...),
	}
	if g.Transitions != nil {
		out.Transitions = make([]Transition, len(g.Transitions))
		for i := range g.Transitions {
			t := g.Transitions[i]
			if t.Guard != nil {
				guard := *t.Guard
				t.Guard = &guard
			}
			t.Assign = append([]Assignment(nil), t.Assign...)
			out.Transitions[i] = t
		}
	}
	return out
}
