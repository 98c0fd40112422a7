// Package template builds the declared-state document for a stack.
package template

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/internal/serialize"
)

// Build serializes the stack, in dependency order, into a Template. It fails
// on unresolved references and cycles: a graph the engine could not schedule
// must not produce an artifact.
func Build(stack *weft.Stack) (*weft.Template, error) {
	if err := stack.Err(); err != nil {
		return nil, err
	}

	g := graph.Build(stack)
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	tmpl := &weft.Template{
		Description: stack.Name(),
		Resources:   make(map[string]weft.ResourceDef, len(order)),
	}

	for _, name := range order {
		res, _ := stack.Get(name)

		props, err := serialize.Resource(res)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}

		tmpl.Resources[name] = weft.ResourceDef{
			Type:       res.ResourceType(),
			Properties: props,
			DependsOn:  stack.DependsOn(name),
		}
	}

	outputNames := stack.OutputNames()
	if len(outputNames) > 0 {
		tmpl.Outputs = make(map[string]weft.Output, len(outputNames))
		for _, name := range outputNames {
			out, _ := stack.GetOutput(name)

			value, err := serialize.Value(out.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}

			tmpl.Outputs[name] = weft.Output{
				Description: out.Description,
				Value:       value,
			}
		}
	}

	return tmpl, nil
}

// ToJSON marshals a template to indented JSON.
func ToJSON(tmpl *weft.Template) ([]byte, error) {
	return json.MarshalIndent(tmpl, "", "  ")
}

// ToYAML marshals a template to YAML.
func ToYAML(tmpl *weft.Template) ([]byte, error) {
	return yaml.Marshal(tmpl)
}
