// Package rules provides static verification of a declared stack's graph.
//
// Each rule checks one property the graph must hold before it is worth
// applying. Rules:
//
//	WFT001: Every reference resolves to a resource declared in the stack
//	WFT002: The dependency graph is acyclic
//	WFT003: Secret-reading policy statements are scoped to a declared secret, never a wildcard
//	WFT004: Invoke permission grants constrain source to exactly one API, stage, method, and path
//	WFT005: API deployments depend on every method and integration of their API
//	WFT006: Function execution roles trust exactly the Lambda service principal
//	WFT007: Every secret has exactly one current version
//	WFT008: Enum-valued attributes use values the control plane accepts
package rules

import (
	"fmt"
	"sort"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
)

// Severity levels for issues.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule is the interface for graph rules.
type Rule interface {
	ID() string
	Description() string
	Check(g *graph.Graph) []weft.Issue
}

// Result contains the outcome of running rules against a graph.
type Result struct {
	Success bool
	Issues  []weft.Issue
}

// Options configures a rule run.
type Options struct {
	// EnabledRules to run. If empty, all rules are enabled.
	EnabledRules []string
}

// AllRules returns every rule in ID order.
func AllRules() []Rule {
	return []Rule{
		DanglingReference{},
		DependencyCycle{},
		SecretLeastPrivilege{},
		PermissionSourceScope{},
		StaleStageTrigger{},
		RoleTrustScope{},
		SecretVersionCardinality{},
		EnumValues{},
	}
}

// Run checks the graph against the configured rules.
func Run(g *graph.Graph, opts Options) Result {
	var issues []weft.Issue

	if err := g.Stack().Err(); err != nil {
		issues = append(issues, weft.Issue{
			RuleID:   "WFT000",
			Severity: SeverityError,
			Message:  err.Error(),
		})
	}

	for _, rule := range enabledRules(opts) {
		issues = append(issues, rule.Check(g)...)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].RuleID != issues[j].RuleID {
			return issues[i].RuleID < issues[j].RuleID
		}
		return issues[i].Resource < issues[j].Resource
	})

	success := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			success = false
		}
	}

	return Result{Success: success, Issues: issues}
}

func enabledRules(opts Options) []Rule {
	all := AllRules()
	if len(opts.EnabledRules) == 0 {
		return all
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if enabled[r.ID()] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// DanglingReference reports references whose target is not declared in the
// stack.
type DanglingReference struct{}

func (DanglingReference) ID() string { return "WFT001" }
func (DanglingReference) Description() string {
	return "Every reference must resolve to a resource declared in the stack"
}

func (r DanglingReference) Check(g *graph.Graph) []weft.Issue {
	dangling := g.Dangling()

	var names []string
	for name := range dangling {
		names = append(names, name)
	}
	sort.Strings(names)

	var issues []weft.Issue
	for _, name := range names {
		for _, ref := range dangling[name] {
			issues = append(issues, weft.Issue{
				RuleID:   r.ID(),
				Severity: SeverityError,
				Resource: name,
				Message:  fmt.Sprintf("reference to undeclared resource %q", ref.Target),
			})
		}
	}
	return issues
}

// DependencyCycle reports cycles in the dependency graph. Dangling targets
// are ignored here; WFT001 reports those.
type DependencyCycle struct{}

func (DependencyCycle) ID() string { return "WFT002" }
func (DependencyCycle) Description() string {
	return "The dependency graph must be acyclic"
}

func (r DependencyCycle) Check(g *graph.Graph) []weft.Issue {
	indegree := make(map[string]int)
	dependents := make(map[string][]string)

	for _, node := range g.Nodes() {
		indegree[node.Name] += 0
		for _, dep := range node.Dependencies() {
			if g.Node(dep) == nil {
				continue
			}
			indegree[node.Name]++
			dependents[dep] = append(dependents[dep], node.Name)
		}
	}

	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}

	done := 0
	for len(ready) > 0 {
		name := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		done++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if done == len(indegree) {
		return nil
	}

	var cycle []string
	for name, deg := range indegree {
		if deg > 0 {
			cycle = append(cycle, name)
		}
	}
	sort.Strings(cycle)

	issues := make([]weft.Issue, 0, len(cycle))
	for _, name := range cycle {
		issues = append(issues, weft.Issue{
			RuleID:   r.ID(),
			Severity: SeverityError,
			Resource: name,
			Message:  "resource participates in a dependency cycle",
		})
	}
	return issues
}

// refTarget unwraps a field value to the logical name it references.
func refTarget(v any) (string, bool) {
	switch ref := v.(type) {
	case weft.Ref:
		if ref.Name == "" || weft.IsPseudo(ref.Name) {
			return "", false
		}
		return ref.Name, true
	case weft.AttrRef:
		if ref.IsZero() {
			return "", false
		}
		return ref.Resource, true
	}
	return "", false
}

// refTargetNode resolves a field value to the graph node it references.
func refTargetNode(g *graph.Graph, v any) *graph.Node {
	name, ok := refTarget(v)
	if !ok {
		return nil
	}
	return g.Node(name)
}
