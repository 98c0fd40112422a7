// Package differ provides semantic comparison of declared-state templates.
//
// Applying the identical graph against converged state must produce zero
// changes; the differ makes that property checkable at the document level,
// and backs the plan command.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	weft "github.com/weftline/weft"
)

// Entry describes one added, removed, or modified resource.
type Entry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []Change `json:"changes,omitempty"`
}

// Change describes one modified attribute.
type Change struct {
	Path string `json:"path"`
	Old  any    `json:"old,omitempty"`
	New  any    `json:"new,omitempty"`
}

// Result contains the difference between two templates.
type Result struct {
	Added    []Entry `json:"added,omitempty"`
	Removed  []Entry `json:"removed,omitempty"`
	Modified []Entry `json:"modified,omitempty"`
}

// Total returns the number of differing resources.
func (r *Result) Total() int {
	return len(r.Added) + len(r.Removed) + len(r.Modified)
}

// Compare compares two templates and returns their differences. old is the
// previously built document, new the currently declared one.
func Compare(oldTmpl, newTmpl *weft.Template) *Result {
	result := &Result{}

	for name, def := range newTmpl.Resources {
		if _, exists := oldTmpl.Resources[name]; !exists {
			result.Added = append(result.Added, Entry{Resource: name, Type: def.Type})
		}
	}

	for name, def := range oldTmpl.Resources {
		if _, exists := newTmpl.Resources[name]; !exists {
			result.Removed = append(result.Removed, Entry{Resource: name, Type: def.Type})
		}
	}

	for name, oldDef := range oldTmpl.Resources {
		newDef, exists := newTmpl.Resources[name]
		if !exists {
			continue
		}
		changes := compareResources(oldDef, newDef)
		if len(changes) > 0 {
			result.Modified = append(result.Modified, Entry{
				Resource: name,
				Type:     oldDef.Type,
				Changes:  changes,
			})
		}
	}

	sortEntries(result.Added)
	sortEntries(result.Removed)
	sortEntries(result.Modified)

	return result
}

// compareResources returns attribute-level changes between two definitions.
func compareResources(oldDef, newDef weft.ResourceDef) []Change {
	var changes []Change

	if oldDef.Type != newDef.Type {
		changes = append(changes, Change{Path: "Type", Old: oldDef.Type, New: newDef.Type})
	}

	keys := make(map[string]bool)
	for k := range oldDef.Properties {
		keys[k] = true
	}
	for k := range newDef.Properties {
		keys[k] = true
	}

	var sorted []string
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		oldVal, inOld := oldDef.Properties[k]
		newVal, inNew := newDef.Properties[k]

		switch {
		case !inOld:
			changes = append(changes, Change{Path: "Properties." + k, New: newVal})
		case !inNew:
			changes = append(changes, Change{Path: "Properties." + k, Old: oldVal})
		case !equalValues(oldVal, newVal):
			changes = append(changes, Change{Path: "Properties." + k, Old: oldVal, New: newVal})
		}
	}

	if !equalValues(normalizeStrings(oldDef.DependsOn), normalizeStrings(newDef.DependsOn)) {
		changes = append(changes, Change{Path: "DependsOn", Old: oldDef.DependsOn, New: newDef.DependsOn})
	}

	return changes
}

// equalValues compares two property values through a JSON round trip so
// that, e.g., int64(3) from reflection equals float64(3) from a loaded file.
func equalValues(a, b any) bool {
	aj, err := json.Marshal(a)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	bj, err := json.Marshal(b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}

	var av, bv any
	if err := json.Unmarshal(aj, &av); err != nil {
		return reflect.DeepEqual(a, b)
	}
	if err := json.Unmarshal(bj, &bv); err != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(av, bv)
}

func normalizeStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}

// CompareFiles compares two template files.
func CompareFiles(oldPath, newPath string) (*Result, error) {
	oldTmpl, err := LoadTemplate(oldPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", oldPath, err)
	}

	newTmpl, err := LoadTemplate(newPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", newPath, err)
	}

	return Compare(oldTmpl, newTmpl), nil
}

// LoadTemplate loads a template from a JSON or YAML file.
func LoadTemplate(path string) (*weft.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmpl weft.Template

	// Try JSON first
	if err := json.Unmarshal(data, &tmpl); err != nil {
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}

	return &tmpl, nil
}
