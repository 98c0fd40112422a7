// Package graph derives a dependency graph from a declared stack.
//
// Edges come from two sources: Ref/AttrRef values found anywhere inside a
// resource's fields, and explicit DependOn hints on the stack. The graph is
// the input to rule validation, template ordering, and the apply engine.
package graph

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	weft "github.com/weftline/weft"
)

// RefUse is one reference found inside a resource declaration.
type RefUse struct {
	// Target is the logical name of the referenced resource.
	Target string
	// Attribute is the referenced attribute; empty for identifier refs.
	Attribute string
}

// Node is one resource in the graph together with its outgoing references.
type Node struct {
	Name     string
	Resource weft.Resource
	// Refs are references collected from the resource's fields,
	// pseudo-references excluded.
	Refs []RefUse
	// Hints are explicit DependOn names from the stack.
	Hints []string
}

// Dependencies returns the deduplicated names this node depends on, in
// first-seen order.
func (n *Node) Dependencies() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, ref := range n.Refs {
		if !seen[ref.Target] {
			seen[ref.Target] = true
			deps = append(deps, ref.Target)
		}
	}
	for _, h := range n.Hints {
		if !seen[h] {
			seen[h] = true
			deps = append(deps, h)
		}
	}
	return deps
}

// Graph is the dependency graph of a stack.
type Graph struct {
	stack *weft.Stack
	nodes map[string]*Node
	order []string
}

// Build collects every node and reference edge from the stack. Dangling
// references are kept in the graph so rules can report them; they are
// rejected again by TopologicalOrder.
func Build(stack *weft.Stack) *Graph {
	g := &Graph{
		stack: stack,
		nodes: make(map[string]*Node),
		order: stack.Names(),
	}

	for _, name := range g.order {
		res, _ := stack.Get(name)
		node := &Node{
			Name:     name,
			Resource: res,
			Hints:    stack.DependsOn(name),
		}
		walkRefs(reflect.ValueOf(res), func(ref RefUse) {
			node.Refs = append(node.Refs, ref)
		})
		g.nodes[name] = node
	}

	return g
}

// Stack returns the underlying stack.
func (g *Graph) Stack() *weft.Stack {
	return g.stack
}

// Node returns the named node, or nil.
func (g *Graph) Node(name string) *Node {
	return g.nodes[name]
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Dangling returns every reference whose target is not declared in the
// stack, keyed by the referencing node name.
func (g *Graph) Dangling() map[string][]RefUse {
	dangling := make(map[string][]RefUse)
	for _, name := range g.order {
		for _, ref := range g.nodes[name].Refs {
			if _, ok := g.stack.Get(ref.Target); !ok {
				dangling[name] = append(dangling[name], ref)
			}
		}
		for _, h := range g.nodes[name].Hints {
			if _, ok := g.stack.Get(h); !ok {
				dangling[name] = append(dangling[name], RefUse{Target: h})
			}
		}
	}
	return dangling
}

// TopologicalOrder returns the node names in apply order: every node appears
// after all of its dependencies. Ties break alphabetically so the order is
// deterministic. Returns an error on dangling references or cycles.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if d := g.Dangling(); len(d) > 0 {
		var names []string
		for name := range d {
			names = append(names, name)
		}
		sort.Strings(names)
		first := d[names[0]][0]
		return nil, fmt.Errorf("unresolved reference %q in resource %q", first.Target, names[0])
	}

	indegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, name := range g.order {
		deps := g.nodes[name].Dependencies()
		indegree[name] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unlocked []string
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		sort.Strings(unlocked)
		ready = mergeSorted(ready, unlocked)
	}

	if len(order) != len(g.order) {
		var cycle []string
		for _, name := range g.order {
			if indegree[name] > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("dependency cycle involving: %s", strings.Join(cycle, ", "))
	}

	return order, nil
}

// mergeSorted merges two sorted string slices.
func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// walkRefs recursively visits v and reports every Ref and AttrRef found.
// Pseudo-references resolve to account facts, not resources, and are
// skipped.
func walkRefs(v reflect.Value, fn func(RefUse)) {
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return
		}
		walkRefs(v.Elem(), fn)

	case reflect.Struct:
		if ref, ok := v.Interface().(weft.Ref); ok {
			if ref.Name != "" && !weft.IsPseudo(ref.Name) {
				fn(RefUse{Target: ref.Name})
			}
			return
		}
		if attr, ok := v.Interface().(weft.AttrRef); ok {
			if !attr.IsZero() {
				fn(RefUse{Target: attr.Resource, Attribute: attr.Attribute})
			}
			return
		}
		if join, ok := v.Interface().(weft.Join); ok {
			for _, val := range join.Values {
				walkRefs(reflect.ValueOf(val), fn)
			}
			return
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				walkRefs(v.Field(i), fn)
			}
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkRefs(v.Index(i), fn)
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			walkRefs(iter.Value(), fn)
		}
	}
}
