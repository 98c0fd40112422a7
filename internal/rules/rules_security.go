package rules

import (
	"fmt"
	"regexp"
	"strings"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/policy"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/iam"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

// SecretLeastPrivilege checks that policy statements granting secret access
// are scoped to a declared secret, never a wildcard. The trust chain's last
// link: the function's role may read exactly the one secret it needs.
type SecretLeastPrivilege struct{}

func (SecretLeastPrivilege) ID() string { return "WFT003" }
func (SecretLeastPrivilege) Description() string {
	return "Secret-reading policy statements must be scoped to a declared secret, never a wildcard"
}

func (r SecretLeastPrivilege) Check(g *graph.Graph) []weft.Issue {
	var issues []weft.Issue

	for _, node := range g.Nodes() {
		rp, ok := node.Resource.(iam.RolePolicy)
		if !ok {
			continue
		}

		for _, stmt := range rp.PolicyDocument.Statement {
			if !touchesSecrets(stmt) {
				continue
			}
			issues = append(issues, r.checkStatement(g, node.Name, stmt)...)
		}
	}

	return issues
}

func (r SecretLeastPrivilege) checkStatement(g *graph.Graph, name string, stmt policy.Statement) []weft.Issue {
	var issues []weft.Issue

	for _, res := range anySlice(stmt.Resource) {
		switch v := res.(type) {
		case string:
			if strings.Contains(v, "*") {
				issues = append(issues, weft.Issue{
					RuleID:   r.ID(),
					Severity: SeverityError,
					Resource: name,
					Message:  fmt.Sprintf("secret access granted on wildcard resource %q", v),
				})
			}
		default:
			target := refTargetNode(g, v)
			if target == nil {
				// WFT001 reports the dangling reference
				continue
			}
			if _, isSecret := target.Resource.(secretsmanager.Secret); !isSecret {
				issues = append(issues, weft.Issue{
					RuleID:   r.ID(),
					Severity: SeverityError,
					Resource: name,
					Message:  fmt.Sprintf("secret access granted on %q, which is not a secret", target.Name),
				})
			}
		}
	}

	if stmt.Resource == nil {
		issues = append(issues, weft.Issue{
			RuleID:   r.ID(),
			Severity: SeverityError,
			Resource: name,
			Message:  "secret access statement has no resource scope",
		})
	}

	return issues
}

// touchesSecrets reports whether a statement's actions reach the secret
// store.
func touchesSecrets(stmt policy.Statement) bool {
	for _, action := range anySlice(stmt.Action) {
		if s, ok := action.(string); ok && strings.HasPrefix(s, "secretsmanager:") {
			return true
		}
	}
	return false
}

// sourceSuffixPattern matches the "/{stage}/{method}{path}" tail of an
// execute-api source constraint. Stage and method must be literal: a "*" in
// either position widens the grant past the declared endpoint.
var sourceSuffixPattern = regexp.MustCompile(`^/([^/*]+)/([A-Z]+)(/[^*]*)?$`)

// PermissionSourceScope checks that invoke permission grants for API Gateway
// constrain their source to exactly one API, stage, method, and path. A
// mismatch here is a silent bug: either the API cannot invoke the function,
// or unintended callers can.
type PermissionSourceScope struct{}

func (PermissionSourceScope) ID() string { return "WFT004" }
func (PermissionSourceScope) Description() string {
	return "Invoke permission grants must constrain source to exactly one API, stage, method, and path"
}

func (r PermissionSourceScope) Check(g *graph.Graph) []weft.Issue {
	var issues []weft.Issue

	for _, node := range g.Nodes() {
		perm, ok := node.Resource.(lambda.Permission)
		if !ok || perm.Principal != apigateway.ServicePrincipal {
			continue
		}

		if perm.SourceArn == nil {
			issues = append(issues, weft.Issue{
				RuleID:   r.ID(),
				Severity: SeverityError,
				Resource: node.Name,
				Message:  "invoke permission for API Gateway has no source constraint",
			})
			continue
		}

		issues = append(issues, r.checkSourceArn(g, node.Name, perm.SourceArn)...)
	}

	return issues
}

func (r PermissionSourceScope) checkSourceArn(g *graph.Graph, name string, sourceArn any) []weft.Issue {
	fail := func(format string, args ...any) []weft.Issue {
		return []weft.Issue{{
			RuleID:   r.ID(),
			Severity: SeverityError,
			Resource: name,
			Message:  fmt.Sprintf(format, args...),
		}}
	}

	join, ok := sourceArn.(weft.Join)
	if !ok {
		// A literal ARN string cannot reference the declared API's
		// generated ID; accept only the Join form.
		return fail("source constraint must be a Join over the API reference")
	}

	refsAPI := false
	for _, v := range join.Values {
		if target := refTargetNode(g, v); target != nil {
			if _, isAPI := target.Resource.(apigateway.RestApi); isAPI {
				refsAPI = true
			}
		}
	}
	if !refsAPI {
		return fail("source constraint does not reference a declared REST API")
	}

	last, ok := lastLiteral(join)
	if !ok {
		return fail("source constraint has no stage/method/path suffix")
	}

	m := sourceSuffixPattern.FindStringSubmatch(last)
	if m == nil {
		return fail("source constraint suffix %q does not match /{stage}/{method}{path}", last)
	}

	declared := declaredSourceSuffixes(g)
	if len(declared) > 0 && !declared[last] {
		return fail("source constraint suffix %q does not match any declared stage, method, and path", last)
	}

	return nil
}

// lastLiteral returns the trailing literal string of a Join.
func lastLiteral(join weft.Join) (string, bool) {
	if len(join.Values) == 0 {
		return "", false
	}
	s, ok := join.Values[len(join.Values)-1].(string)
	return s, ok
}

// declaredSourceSuffixes returns every "/{stage}/{method}{path}" combination
// the stack declares.
func declaredSourceSuffixes(g *graph.Graph) map[string]bool {
	suffixes := make(map[string]bool)

	for _, mnode := range g.Nodes() {
		method, ok := mnode.Resource.(apigateway.Method)
		if !ok {
			continue
		}
		path := resourcePath(g, refTargetNode(g, method.Resource))

		for _, snode := range g.Nodes() {
			stage, ok := snode.Resource.(apigateway.Stage)
			if !ok || stage.StageName == "" {
				continue
			}
			suffixes["/"+stage.StageName+"/"+method.HttpMethod+path] = true
		}
	}

	return suffixes
}

// resourcePath reconstructs the declared path of an API resource node by
// walking its parent chain up to the API root.
func resourcePath(g *graph.Graph, node *graph.Node) string {
	path := ""
	for node != nil {
		res, ok := node.Resource.(apigateway.Resource)
		if !ok {
			break
		}
		path = "/" + res.PathPart + path
		node = refTargetNode(g, res.Parent)
	}
	return path
}

// RoleTrustScope checks that a role executing a declared function trusts
// exactly the Lambda service principal: the first link of the trust chain.
type RoleTrustScope struct{}

func (RoleTrustScope) ID() string { return "WFT006" }
func (RoleTrustScope) Description() string {
	return "Function execution roles must trust exactly the Lambda service principal"
}

func (r RoleTrustScope) Check(g *graph.Graph) []weft.Issue {
	var issues []weft.Issue

	for _, node := range g.Nodes() {
		fn, ok := node.Resource.(lambda.Function)
		if !ok {
			continue
		}

		roleNode := refTargetNode(g, fn.Role)
		if roleNode == nil {
			continue
		}
		role, ok := roleNode.Resource.(iam.Role)
		if !ok {
			issues = append(issues, weft.Issue{
				RuleID:   r.ID(),
				Severity: SeverityError,
				Resource: node.Name,
				Message:  fmt.Sprintf("function role references %q, which is not a role", roleNode.Name),
			})
			continue
		}

		if !trustsOnly(role.AssumeRolePolicyDocument, iam.LambdaServicePrincipal) {
			issues = append(issues, weft.Issue{
				RuleID:   r.ID(),
				Severity: SeverityError,
				Resource: roleNode.Name,
				Message:  fmt.Sprintf("trust policy must name exactly the %s principal", iam.LambdaServicePrincipal),
			})
		}
	}

	return issues
}

// trustsOnly reports whether doc allows sts:AssumeRole for exactly the given
// service principal and nothing else.
func trustsOnly(doc policy.Document, service string) bool {
	if len(doc.Statement) != 1 {
		return false
	}
	stmt := doc.Statement[0]
	if stmt.Effect != "Allow" {
		return false
	}

	actions := anySlice(stmt.Action)
	if len(actions) != 1 {
		return false
	}
	if a, ok := actions[0].(string); !ok || a != "sts:AssumeRole" {
		return false
	}

	sp, ok := stmt.Principal.(policy.ServicePrincipal)
	if !ok || len(sp) != 1 {
		return false
	}
	s, ok := sp[0].(string)
	return ok && s == service
}

// anySlice normalizes a scalar-or-slice field to a slice.
func anySlice(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{val}
	}
}
