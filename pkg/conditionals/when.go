package conditionals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/passage-engine/pkg/vars"
	"gopkg.in/yaml.v3"
)

// When is the condition gating a choice. All specified checks must pass.
//
// Story documents may write it in two forms:
//
//	if: {quete_signes: true}                            # shorthand: exact variable matches
//	if: {vars: {path: crow}, min: {possession: 2}}      # structured
type When struct {
	Vars map[string]vars.Value `json:"vars,omitempty" yaml:"vars,omitempty"` // Each variable must equal the given value
	Min  map[string]int        `json:"min,omitempty" yaml:"min,omitempty"`   // Numeric variable >= value
	Max  map[string]int        `json:"max,omitempty" yaml:"max,omitempty"`   // Numeric variable <= value
}

// VarView provides the variables a condition is evaluated against.
type VarView interface {
	Get(name string) (vars.Value, bool)
	Num(name string) int
}

var _ VarView = vars.Store(nil)

// IsEmpty reports whether no check is specified.
func (w When) IsEmpty() bool {
	return len(w.Vars) == 0 && len(w.Min) == 0 && len(w.Max) == 0
}

// Names returns every variable referenced by the condition, sorted and deduplicated.
func (w When) Names() []string {
	set := make(map[string]struct{})
	for k := range w.Vars {
		set[k] = struct{}{}
	}
	for k := range w.Min {
		set[k] = struct{}{}
	}
	for k := range w.Max {
		set[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Evaluate checks the condition against the given variables.
// An empty condition never passes, so callers treat a nil *When as "always".
func Evaluate(w When, view VarView) bool {
	if w.IsEmpty() {
		return false
	}

	for name, want := range w.Vars {
		got, ok := view.Get(name)
		if !ok || got != want {
			return false
		}
	}

	// Min/max only apply to numbers; an unset variable reads as 0
	for name, lo := range w.Min {
		if v, ok := view.Get(name); ok && v.Kind() != vars.KindNumber {
			return false
		}
		if view.Num(name) < lo {
			return false
		}
	}
	for name, hi := range w.Max {
		if v, ok := view.Get(name); ok && v.Kind() != vars.KindNumber {
			return false
		}
		if view.Num(name) > hi {
			return false
		}
	}

	return true
}

// Visible reports whether a choice guarded by w is shown. A nil condition is always visible.
func Visible(w *When, view VarView) bool {
	if w == nil {
		return true
	}
	return Evaluate(*w, view)
}

var structuredKeys = map[string]bool{"vars": true, "min": true, "max": true}

// UnmarshalJSON accepts both the shorthand and the structured form.
func (w *When) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition must be an object: %w", err)
	}

	structured := len(raw) > 0
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if !structuredKeys[k] || len(v) == 0 || v[0] != '{' {
			structured = false
			break
		}
	}

	if structured {
		type alias When
		var a alias
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*w = When(a)
		return nil
	}

	var flat map[string]vars.Value
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*w = When{Vars: flat}
	return nil
}

// UnmarshalYAML accepts both the shorthand and the structured form.
func (w *When) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: condition must be a mapping", node.Line)
	}

	structured := len(node.Content) > 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if !structuredKeys[key.Value] || val.Kind != yaml.MappingNode {
			structured = false
			break
		}
	}

	if structured {
		type alias When
		var a alias
		if err := node.Decode(&a); err != nil {
			return err
		}
		*w = When(a)
		return nil
	}

	var flat map[string]vars.Value
	if err := node.Decode(&flat); err != nil {
		return err
	}
	*w = When{Vars: flat}
	return nil
}
