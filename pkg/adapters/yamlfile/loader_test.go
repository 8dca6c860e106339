package yamlfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personakit/persona/pkg/adapters/yamlfile"
	"github.com/personakit/persona/pkg/domain"
)

const leadPersonaYAML = `
name: lead-qualifier
state_graph:
  initial_state: welcome
  states: [welcome, ask_contact, done]
  transitions:
    - from: welcome
      event: START
      to: ask_contact
    - from: ask_contact
      event: SUBMIT
      to: done
      guard:
        field: plan
        operator: equals
        value: pro
      assign:
        full_name:
          kind: payload
          path: contact.name
        plan:
          kind: literal
          literal: pro
form_schema:
  - id: full_name
    name: name
    type: string
    validation:
      required: true
      min_length: 2
  - id: plan
    type: string
    options: [free, pro]
    default: free
view_map:
  nodes:
    - state_id: welcome
      components:
        - type: message
          properties:
            text: "Hi there!"
    - state_id: ask_contact
      components:
        - type: message
          properties:
            text: "Who are you?"
    - state_id: done
      components:
        - type: message
          properties:
            text: "Thanks, {{name}}!"
`

func TestParse(t *testing.T) {
	spec, err := yamlfile.Parse([]byte(leadPersonaYAML))
	require.NoError(t, err)

	assert.Equal(t, "lead-qualifier", spec.Name)
	assert.Equal(t, "welcome", spec.StateGraph.InitialState)
	assert.Equal(t, []string{"welcome", "ask_contact", "done"}, spec.StateGraph.States)
	require.Len(t, spec.StateGraph.Transitions, 2)

	submit := spec.StateGraph.Transitions[1]
	require.NotNil(t, submit.Guard)
	assert.Equal(t, domain.OpEquals, submit.Guard.Operator)
	assert.Equal(t, "pro", submit.Guard.Value)

	// Assign is a YAML mapping; declaration order must survive decoding.
	require.Len(t, submit.Assign, 2)
	assert.Equal(t, "full_name", submit.Assign[0].Field)
	assert.Equal(t, domain.AssignPayload, submit.Assign[0].Spec.Kind)
	assert.Equal(t, "contact.name", submit.Assign[0].Spec.Path)
	assert.Equal(t, "plan", submit.Assign[1].Field)
	assert.Equal(t, domain.AssignLiteral, submit.Assign[1].Spec.Kind)

	require.Len(t, spec.FormSchema, 2)
	assert.Equal(t, "name", spec.FormSchema[0].Name)
	require.NotNil(t, spec.FormSchema[0].Validation)
	assert.True(t, spec.FormSchema[0].Validation.Required)
	assert.Equal(t, 2, spec.FormSchema[0].Validation.MinLength)
	assert.Equal(t, "free", spec.FormSchema[1].Default)

	require.Len(t, spec.ViewMap.Nodes, 3)
	assert.Equal(t, "Thanks, {{name}}!", spec.ViewMap.Nodes[2].Components[0].Properties["text"])
}

func TestParseProducesValidDefinition(t *testing.T) {
	spec, err := yamlfile.Parse([]byte(leadPersonaYAML))
	require.NoError(t, err)

	_, err = domain.NewPersonaDefinition("p1", spec.Name, spec.StateGraph, spec.FormSchema, spec.ViewMap)
	assert.NoError(t, err)
}

func TestParseAssignList(t *testing.T) {
	doc := `
name: survey
state_graph:
  initial_state: pick
  states: [pick, review]
  transitions:
    - from: pick
      event: SELECT
      to: pick
      assign:
        - field: topics
          spec:
            kind: append
            path: topic
    - from: pick
      event: SUBMIT
      to: review
`
	spec, err := yamlfile.Parse([]byte(doc))
	require.NoError(t, err)

	require.Len(t, spec.StateGraph.Transitions[0].Assign, 1)
	a := spec.StateGraph.Transitions[0].Assign[0]
	assert.Equal(t, "topics", a.Field)
	assert.Equal(t, domain.AssignAppend, a.Spec.Kind)
	assert.Equal(t, "topic", a.Spec.Path)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"guard typo",
			`
state_graph:
  transitions:
    - from: a
      event: GO
      to: b
      guard:
        field: plan
        operatr: equals
        value: pro
`,
		},
		{
			"assign spec typo",
			`
state_graph:
  transitions:
    - from: a
      event: GO
      to: b
      assign:
        plan:
          kind: literal
          litteral: pro
`,
		},
		{
			"form field typo",
			`
form_schema:
  - id: name
    type: string
    requird: true
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := yamlfile.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseRejectsScalarAssign(t *testing.T) {
	doc := `
state_graph:
  transitions:
    - from: a
      event: GO
      to: b
      assign: nope
`
	_, err := yamlfile.Parse([]byte(doc))
	assert.Error(t, err)
}

func TestLoadDefaultsNameFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "support-bot.yaml")
	doc := `
state_graph:
  initial_state: start
  states: [start]
view_map:
  nodes:
    - state_id: start
      components:
        - type: message
          properties:
            text: hello
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	spec, err := yamlfile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "support-bot", spec.Name)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("name: alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	specs, err := yamlfile.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "alpha", specs[0].Name)
	assert.Equal(t, "beta", specs[1].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := yamlfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
