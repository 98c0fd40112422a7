package rules

import (
	"fmt"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/secretsmanager"
)

// StaleStageTrigger checks that every API deployment depends on every method
// and integration of its API. A deployment missing such a dependency is the
// classic stale-stage bug: a change to the method or integration appears
// applied while the live stage still serves the old snapshot.
type StaleStageTrigger struct{}

func (StaleStageTrigger) ID() string { return "WFT005" }
func (StaleStageTrigger) Description() string {
	return "API deployments must depend on every method and integration of their API"
}

func (r StaleStageTrigger) Check(g *graph.Graph) []weft.Issue {
	var issues []weft.Issue

	for _, node := range g.Nodes() {
		dep, ok := node.Resource.(apigateway.Deployment)
		if !ok {
			continue
		}

		apiNode := refTargetNode(g, dep.RestApi)
		if apiNode == nil {
			continue
		}

		deps := make(map[string]bool)
		for _, d := range node.Dependencies() {
			deps[d] = true
		}

		for _, other := range g.Nodes() {
			var apiField any
			switch res := other.Resource.(type) {
			case apigateway.Method:
				apiField = res.RestApi
			case apigateway.Integration:
				apiField = res.RestApi
			default:
				continue
			}

			target := refTargetNode(g, apiField)
			if target == nil || target.Name != apiNode.Name {
				continue
			}
			if !deps[other.Name] {
				issues = append(issues, weft.Issue{
					RuleID:   r.ID(),
					Severity: SeverityError,
					Resource: node.Name,
					Message:  fmt.Sprintf("deployment does not depend on %q; the live stage would serve a stale snapshot after changes to it", other.Name),
				})
			}
		}
	}

	return issues
}

// SecretVersionCardinality checks that every secret has exactly one current
// version declared.
type SecretVersionCardinality struct{}

func (SecretVersionCardinality) ID() string { return "WFT007" }
func (SecretVersionCardinality) Description() string {
	return "Every secret must have exactly one current version"
}

func (r SecretVersionCardinality) Check(g *graph.Graph) []weft.Issue {
	versions := make(map[string]int)

	for _, node := range g.Nodes() {
		sv, ok := node.Resource.(secretsmanager.SecretVersion)
		if !ok {
			continue
		}
		if target := refTargetNode(g, sv.Secret); target != nil {
			versions[target.Name]++
		}
	}

	var issues []weft.Issue
	for _, node := range g.Nodes() {
		if _, ok := node.Resource.(secretsmanager.Secret); !ok {
			continue
		}
		if n := versions[node.Name]; n != 1 {
			issues = append(issues, weft.Issue{
				RuleID:   r.ID(),
				Severity: SeverityError,
				Resource: node.Name,
				Message:  fmt.Sprintf("secret has %d current versions, want exactly 1", n),
			})
		}
	}

	return issues
}

// EnumValues checks that enum-valued attributes carry values the control
// plane accepts. Interoperability depends on exact value domains.
type EnumValues struct{}

func (EnumValues) ID() string { return "WFT008" }
func (EnumValues) Description() string {
	return "Enum-valued attributes must use values the control plane accepts"
}

func (r EnumValues) Check(g *graph.Graph) []weft.Issue {
	var issues []weft.Issue

	flag := func(name, format string, args ...any) {
		issues = append(issues, weft.Issue{
			RuleID:   r.ID(),
			Severity: SeverityError,
			Resource: name,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, node := range g.Nodes() {
		switch res := node.Resource.(type) {
		case apigateway.Method:
			if !apigateway.IsValidHTTPMethod(res.HttpMethod) {
				flag(node.Name, "invalid HTTP method %q", res.HttpMethod)
			}
			if !apigateway.IsValidAuthorizationType(res.AuthorizationType) {
				flag(node.Name, "invalid authorization type %q", res.AuthorizationType)
			}
		case apigateway.Integration:
			if !apigateway.IsValidIntegrationType(res.Type) {
				flag(node.Name, "invalid integration type %q", res.Type)
			}
		}
	}

	return issues
}
