// Package weft provides Go types for declaring small AWS infrastructure
// stacks as typed resource graphs.
//
// Infrastructure is declared as plain Go values collected into a Stack:
//
//	stack := weft.NewStack("hello")
//	stack.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})
//	stack.Add("ExecutionRole", iam.Role{RoleName: "my_lambda_role", ...})
//
// References between resources are expressed with Ref and AttrRef values,
// which double as dependency edges: the graph layer derives a topological
// apply order from them, the rules layer checks the graph's static
// properties, and the engine converges live AWS state to the declaration.
package weft

// Resource represents one declared unit of desired infrastructure state.
// All resource types (secretsmanager.Secret, iam.Role, lambda.Function, ...)
// implement this interface.
type Resource interface {
	// ResourceType returns the resource type identifier
	// (e.g., "AWS::Lambda::Function").
	ResourceType() string
}

// Template is the serialized form of a declared stack: every resource in
// dependency order plus the stack outputs. It is the artifact emitted by
// `weft build` and the input to plan comparison.
type Template struct {
	Description string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources   map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs     map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource entry in a Template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Output is a named value derived from the stack, published for downstream
// consumers (e.g., the invoke URL of a deployed API stage).
type Output struct {
	Description string `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any    `json:"Value" yaml:"Value"`
}

// Issue is a single finding reported by a graph rule.
type Issue struct {
	RuleID   string `json:"rule"`
	Severity string `json:"severity"` // "error" or "warning"
	Resource string `json:"resource,omitempty"`
	Message  string `json:"message"`
}

// BuildResult is the JSON output from `weft build`.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `weft validate`.
type ValidateResult struct {
	Success   bool    `json:"success"`
	Resources int     `json:"resources"`
	Issues    []Issue `json:"issues,omitempty"`
}

// ListResult is the JSON output from `weft list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
