package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona/pkg/domain"
)

func minimalViewMap(states ...string) domain.ViewMap {
	nodes := make([]domain.ViewNode, len(states))
	for i, s := range states {
		nodes[i] = domain.ViewNode{
			StateID: s,
			Components: []domain.ComponentDescriptor{
				{Type: domain.ComponentMessage, Properties: map[string]any{"text": s}},
			},
		}
	}
	return domain.ViewMap{Nodes: nodes}
}

func TestNewPersonaDefinition(t *testing.T) {
	graph := domain.StateGraph{
		InitialState: "start",
		States:       []string{"start", "done"},
		Transitions:  []domain.Transition{{From: "start", Event: "GO", To: "done"}},
	}
	schema := domain.FormSchema{{ID: "name", Type: domain.FieldString}}

	def, err := domain.NewPersonaDefinition("p1", "greeter", graph, schema, minimalViewMap("start", "done"))
	require.NoError(t, err)
	assert.Equal(t, "p1", def.ID)
	assert.Equal(t, "greeter", def.Name)

	// The definition snapshots its inputs.
	graph.Transitions[0].To = "start"
	assert.Equal(t, "done", def.StateGraph.Transitions[0].To)
}

func TestNewPersonaDefinitionRejectsInvalid(t *testing.T) {
	graph := domain.StateGraph{
		InitialState: "start",
		States:       []string{"start", "done"},
		Transitions:  []domain.Transition{{From: "start", Event: "GO", To: "done"}},
	}
	schema := domain.FormSchema{{ID: "name", Type: domain.FieldString}}

	tests := []struct {
		name   string
		def    func() (*domain.PersonaDefinition, error)
		reason string
	}{
		{
			"missing name",
			func() (*domain.PersonaDefinition, error) {
				return domain.NewPersonaDefinition("p1", "", graph, schema, minimalViewMap("start", "done"))
			},
			"persona name is required",
		},
		{
			"state without view node",
			func() (*domain.PersonaDefinition, error) {
				return domain.NewPersonaDefinition("p1", "greeter", graph, schema, minimalViewMap("start"))
			},
			`state "done" has no view node`,
		},
		{
			"duplicate view node",
			func() (*domain.PersonaDefinition, error) {
				return domain.NewPersonaDefinition("p1", "greeter", graph, schema, minimalViewMap("start", "done", "done"))
			},
			`state "done" has 2 view nodes, want exactly one`,
		},
		{
			"view node for unknown state",
			func() (*domain.PersonaDefinition, error) {
				return domain.NewPersonaDefinition("p1", "greeter", graph, schema, minimalViewMap("start", "done", "phantom"))
			},
			`view node references unknown state "phantom"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := tt.def()
			assert.Nil(t, def)

			var defErr *domain.DefinitionError
			require.ErrorAs(t, err, &defErr)
			assert.Contains(t, defErr.Reasons, tt.reason)
		})
	}
}

func TestNewPersonaDefinitionCollectsAllReasons(t *testing.T) {
	graph := domain.StateGraph{InitialState: "ghost", States: []string{"start"}}
	schema := domain.FormSchema{{ID: "x", Type: "blob"}}

	_, err := domain.NewPersonaDefinition("p1", "", graph, schema, domain.ViewMap{})

	var defErr *domain.DefinitionError
	require.ErrorAs(t, err, &defErr)
	// Name, graph, schema and view problems all reported in one pass.
	assert.GreaterOrEqual(t, len(defErr.Reasons), 4)
}
