package weft

import "fmt"

// Stack is an ordered collection of named resources and outputs. It is the
// arena every other layer works from: the graph layer derives dependency
// edges from it, rules validate it, and the engine applies it.
type Stack struct {
	name string

	order     []string
	resources map[string]Resource

	// dependsOn holds explicit ordering hints for dependencies that cannot
	// be inferred from references alone.
	dependsOn map[string][]string

	outputOrder []string
	outputs     map[string]Output

	errs []error
}

// NewStack creates an empty stack with the given name.
func NewStack(name string) *Stack {
	return &Stack{
		name:      name,
		resources: make(map[string]Resource),
		dependsOn: make(map[string][]string),
		outputs:   make(map[string]Output),
	}
}

// Name returns the stack name.
func (s *Stack) Name() string {
	return s.name
}

// Add registers a resource under a unique logical name. Duplicate names are
// recorded as errors and surfaced by Err.
func (s *Stack) Add(name string, r Resource) {
	if _, exists := s.resources[name]; exists {
		s.errs = append(s.errs, fmt.Errorf("duplicate resource name %q", name))
		return
	}
	s.order = append(s.order, name)
	s.resources[name] = r
}

// DependOn records explicit dependency hints: name must be applied after
// every resource in deps, regardless of references.
func (s *Stack) DependOn(name string, deps ...string) {
	s.dependsOn[name] = append(s.dependsOn[name], deps...)
}

// AddOutput registers a derived output value under a unique name.
func (s *Stack) AddOutput(name string, out Output) {
	if _, exists := s.outputs[name]; exists {
		s.errs = append(s.errs, fmt.Errorf("duplicate output name %q", name))
		return
	}
	s.outputOrder = append(s.outputOrder, name)
	s.outputs[name] = out
}

// Get returns the resource registered under name.
func (s *Stack) Get(name string) (Resource, bool) {
	r, ok := s.resources[name]
	return r, ok
}

// Names returns the resource names in declaration order.
func (s *Stack) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// DependsOn returns the explicit dependency hints for name.
func (s *Stack) DependsOn(name string) []string {
	return s.dependsOn[name]
}

// OutputNames returns the output names in declaration order.
func (s *Stack) OutputNames() []string {
	out := make([]string, len(s.outputOrder))
	copy(out, s.outputOrder)
	return out
}

// GetOutput returns the output registered under name.
func (s *Stack) GetOutput(name string) (Output, bool) {
	o, ok := s.outputs[name]
	return o, ok
}

// Len returns the number of registered resources.
func (s *Stack) Len() int {
	return len(s.order)
}

// Err returns the first registration error, if any.
func (s *Stack) Err() error {
	if len(s.errs) > 0 {
		return s.errs[0]
	}
	return nil
}
