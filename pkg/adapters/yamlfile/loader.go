// Package yamlfile loads persona definitions from YAML files, the
// design-time authoring format. A file carries the persona name, state
// graph, form schema and view map; the engine validates the cross-structure
// invariants when the definition is registered.
package yamlfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/personakit/persona/pkg/domain"
)

// Spec is a parsed, not-yet-validated persona definition.
type Spec struct {
	Name       string
	StateGraph domain.StateGraph
	FormSchema domain.FormSchema
	ViewMap    domain.ViewMap
}

type fileSpec struct {
	Name       string           `yaml:"name"`
	StateGraph graphSpec        `yaml:"state_graph"`
	FormSchema []map[string]any `yaml:"form_schema"`
	ViewMap    map[string]any   `yaml:"view_map"`
}

type graphSpec struct {
	InitialState string           `yaml:"initial_state"`
	States       []string         `yaml:"states"`
	Transitions  []transitionSpec `yaml:"transitions"`
}

type transitionSpec struct {
	From   string         `yaml:"from"`
	Event  string         `yaml:"event"`
	To     string         `yaml:"to"`
	Guard  map[string]any `yaml:"guard"`
	Assign yaml.Node      `yaml:"assign"`
}

// Parse decodes one YAML document into a Spec.
func Parse(data []byte) (*Spec, error) {
	var file fileSpec
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}

	spec := &Spec{
		Name: file.Name,
		StateGraph: domain.StateGraph{
			InitialState: file.StateGraph.InitialState,
			States:       file.StateGraph.States,
		},
	}

	for i, t := range file.StateGraph.Transitions {
		transition := domain.Transition{From: t.From, Event: t.Event, To: t.To}
		if t.Guard != nil {
			var guard domain.Guard
			if err := decodeStrict(t.Guard, &guard); err != nil {
				return nil, fmt.Errorf("transition %d: decode guard: %w", i, err)
			}
			transition.Guard = &guard
		}
		assigns, err := decodeAssign(&t.Assign)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		transition.Assign = assigns
		spec.StateGraph.Transitions = append(spec.StateGraph.Transitions, transition)
	}

	for i, raw := range file.FormSchema {
		var field domain.FieldDefinition
		if err := decodeStrict(raw, &field); err != nil {
			return nil, fmt.Errorf("form field %d: %w", i, err)
		}
		spec.FormSchema = append(spec.FormSchema, field)
	}

	if file.ViewMap != nil {
		if err := decodeLoose(file.ViewMap, &spec.ViewMap); err != nil {
			return nil, fmt.Errorf("decode view map: %w", err)
		}
	}

	return spec, nil
}

// decodeAssign accepts either a mapping (field -> spec, declaration order
// preserved) or a list of {field, spec} entries.
func decodeAssign(node *yaml.Node) ([]domain.Assignment, error) {
	switch node.Kind {
	case 0: // absent
		return nil, nil
	case yaml.MappingNode:
		var assigns []domain.Assignment
		for i := 0; i+1 < len(node.Content); i += 2 {
			field := node.Content[i].Value
			var raw map[string]any
			if err := node.Content[i+1].Decode(&raw); err != nil {
				return nil, fmt.Errorf("decode assign spec for %q: %w", field, err)
			}
			var spec domain.AssignSpec
			if err := decodeStrict(raw, &spec); err != nil {
				return nil, fmt.Errorf("assign spec for %q: %w", field, err)
			}
			assigns = append(assigns, domain.Assignment{Field: field, Spec: spec})
		}
		return assigns, nil
	case yaml.SequenceNode:
		var raw []map[string]any
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode assign list: %w", err)
		}
		var assigns []domain.Assignment
		for i, entry := range raw {
			var a domain.Assignment
			if err := decodeStrict(entry, &a); err != nil {
				return nil, fmt.Errorf("assign entry %d: %w", i, err)
			}
			assigns = append(assigns, a)
		}
		return assigns, nil
	default:
		return nil, fmt.Errorf("assign must be a mapping or a list, got yaml kind %d", node.Kind)
	}
}

// decodeStrict maps a generic YAML value onto a typed struct, rejecting
// unknown keys so authoring typos fail loudly.
func decodeStrict(input any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		TagName:     "yaml",
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// decodeLoose is decodeStrict without the unknown-key check, used for view
// nodes whose component properties are free-form.
func decodeLoose(input any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Load parses a single persona file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if spec.Name == "" {
		base := filepath.Base(path)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return spec, nil
}

// LoadDir parses every .yaml/.yml file in a directory, in name order.
func LoadDir(dir string) ([]*Spec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	var specs []*Spec
	for _, path := range paths {
		spec, err := Load(path)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
