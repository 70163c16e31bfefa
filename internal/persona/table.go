package persona

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed persona.yaml
var defaultTableYAML []byte

// StateDef describes one emotional state.
type StateDef struct {
	Terminal    bool              `yaml:"terminal"`
	Fragment    string            `yaml:"fragment"`
	Transitions map[string]string `yaml:"transitions"`
}

// Table is the persona transition table.
type Table struct {
	Initial string              `yaml:"initial"`
	States  map[string]StateDef `yaml:"states"`
}

// DefaultTable returns the built-in table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTableYAML)
}

// LoadTable reads a table from a YAML file; an empty path yields the
// built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML table.
func ParseTable(data []byte) (*Table, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("parse persona table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that the initial state and every transition target exist
// and that terminal states have no transitions.
func (t *Table) Validate() error {
	if _, ok := t.States[t.Initial]; !ok {
		return fmt.Errorf("persona table: initial state %q is not defined", t.Initial)
	}
	for name, def := range t.States {
		if def.Terminal && len(def.Transitions) > 0 {
			return fmt.Errorf("persona table: terminal state %q has transitions", name)
		}
		for interaction, target := range def.Transitions {
			if _, ok := t.States[target]; !ok {
				return fmt.Errorf("persona table: %s --%s--> %q targets an undefined state", name, interaction, target)
			}
		}
	}
	return nil
}

// Next returns the state reached from state by interaction, and whether a
// transition exists. Unknown states and interactions stay put.
func (t *Table) Next(state, interaction string) (string, bool) {
	target, ok := t.States[state].Transitions[interaction]
	if !ok {
		return state, false
	}
	return target, true
}

// FragmentOf returns the fragment unlocked on reaching state, if any.
func (t *Table) FragmentOf(state string) string {
	return t.States[state].Fragment
}

// StateNames lists defined states, sorted.
func (t *Table) StateNames() []string {
	names := make([]string, 0, len(t.States))
	for name := range t.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
