// SPDX-License-Identifier: Apache-2.0

// Package vars implements the per-step and per-command variable model.
// Variables resolve in declaration order; a later variable sees every value
// resolved earlier in the same pass, which allows forward composition like
//
//	vars:
//	  dist_folder: "{{ .project }}-{{ .release_version }}-RC{{ .rc_number }}"
//	  dist_url: "{{ .dist_url_base }}/{{ .dist_folder }}"
//
// There is no cycle detection: a self-referencing variable set is a
// configuration error with undefined output.
package vars

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/relwiz/relwiz/internal/core/template"
	"github.com/relwiz/relwiz/internal/wizard/action"
)

// Def is one variable definition: either a literal template string or a
// reference to a registered computed function.
type Def struct {
	Name     string
	Literal  string
	Function string
}

// Ordered is a variable set that preserves YAML declaration order. A plain
// Go map would lose the ordering the resolution pass depends on.
type Ordered []Def

// UnmarshalYAML decodes a YAML mapping into an ordered variable list. Each
// value is either a scalar (literal) or a {function: name} mapping.
func (o *Ordered) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("vars must be a mapping, got %v", node.Kind)
	}

	out := make(Ordered, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valNode := node.Content[i+1]

		def := Def{Name: keyNode.Value}
		switch valNode.Kind {
		case yaml.ScalarNode:
			def.Literal = valNode.Value
		case yaml.MappingNode:
			var ref struct {
				Function string `yaml:"function"`
			}
			if err := valNode.Decode(&ref); err != nil {
				return fmt.Errorf("invalid definition for variable %q: %w", def.Name, err)
			}
			if ref.Function == "" {
				return fmt.Errorf("variable %q: mapping form requires a function name", def.Name)
			}
			def.Function = ref.Function
		default:
			return fmt.Errorf("variable %q: unsupported value kind %v", def.Name, valNode.Kind)
		}
		out = append(out, def)
	}

	*o = out
	return nil
}

// MarshalYAML re-emits the ordered variable list as a mapping.
func (o Ordered) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, def := range o {
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: def.Name}
		var val *yaml.Node
		if def.Function != "" {
			val = &yaml.Node{Kind: yaml.MappingNode}
			val.Content = append(val.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "function"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: def.Function},
			)
		} else {
			val = &yaml.Node{Kind: yaml.ScalarNode, Value: def.Literal}
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// Resolver resolves variable sets against the registry and expander.
type Resolver struct {
	Registry *action.Registry
	Expander *template.Expander
}

// NewResolver creates a Resolver.
func NewResolver(registry *action.Registry, expander *template.Expander) *Resolver {
	return &Resolver{Registry: registry, Expander: expander}
}

// Resolve computes the variable set. Computed references are invoked to
// obtain a raw string, then every raw value is rendered with the variables
// resolved so far in this pass. Resolution is fresh on every call.
func (r *Resolver) Resolve(defs Ordered) map[string]string {
	resolved := make(map[string]string, len(defs))
	order := make([]string, 0, len(defs))

	for _, def := range defs {
		raw := def.Literal
		if def.Function != "" {
			fn, err := r.Registry.VarFunc(def.Function)
			if err != nil {
				fmt.Printf("Warning: variable %q: %v\n", def.Name, err)
				continue
			}
			value, err := fn()
			if err != nil {
				fmt.Printf("Warning: variable %q: function %s failed: %v\n", def.Name, def.Function, err)
				continue
			}
			raw = value
		}

		soFar := make(map[string]interface{}, len(order))
		for _, name := range order {
			soFar[name] = resolved[name]
		}
		resolved[def.Name] = r.Expander.Render(raw, soFar)
		order = append(order, def.Name)
	}

	return resolved
}

// Merge overlays b onto a into a fresh map.
func Merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// ToContext converts a resolved string map into a template context.
func ToContext(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
