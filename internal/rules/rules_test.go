package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/policy"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/iam"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

// validStack declares a complete secret-backed API that every rule accepts.
func validStack() *weft.Stack {
	s := weft.NewStack("valid")

	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret:       weft.Ref{Name: "AppSecret"},
		SecretString: "password123!",
	})

	s.Add("ExecutionRole", iam.Role{
		RoleName:                 "exec",
		AssumeRolePolicyDocument: policy.TrustPolicy(iam.LambdaServicePrincipal),
	})
	s.Add("SecretReadPolicy", iam.RolePolicy{
		Role:       weft.Ref{Name: "ExecutionRole"},
		PolicyName: "read-secret",
		PolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{{
				Effect:   "Allow",
				Action:   "secretsmanager:GetSecretValue",
				Resource: weft.AttrRef{Resource: "AppSecret", Attribute: "Arn"},
			}},
		},
	})

	s.Add("Fn", lambda.Function{
		FunctionName: "fn",
		Handler:      "index.handler",
		Runtime:      lambda.RuntimeNodejs18,
		Role:         weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
		Code:         lambda.Code{ZipFile: "lambda.zip"},
	})

	s.Add("API", apigateway.RestApi{Name: "api"})
	s.Add("HelloResource", apigateway.Resource{
		RestApi:  weft.Ref{Name: "API"},
		Parent:   weft.AttrRef{Resource: "API", Attribute: "RootResourceId"},
		PathPart: "hello",
	})
	s.Add("HelloMethod", apigateway.Method{
		RestApi:           weft.Ref{Name: "API"},
		Resource:          weft.Ref{Name: "HelloResource"},
		HttpMethod:        "GET",
		AuthorizationType: apigateway.AuthorizationIAM,
	})
	s.Add("HelloIntegration", apigateway.Integration{
		RestApi:               weft.Ref{Name: "API"},
		Resource:              weft.Ref{Name: "HelloResource"},
		Method:                weft.Ref{Name: "HelloMethod"},
		Type:                  apigateway.IntegrationAWSProxy,
		IntegrationHttpMethod: "POST",
		Uri: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":apigateway:", weft.AWS_REGION,
			":lambda:path/2015-03-31/functions/",
			weft.AttrRef{Resource: "Fn", Attribute: "Arn"},
			"/invocations",
		}},
	})

	s.Add("InvokePermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Action:       lambda.InvokeAction,
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
			":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"},
			"/dev/GET/hello",
		}},
	})

	s.Add("Deployment", apigateway.Deployment{
		RestApi: weft.Ref{Name: "API"},
		Triggers: []any{
			weft.Ref{Name: "HelloMethod"},
			weft.Ref{Name: "HelloIntegration"},
		},
	})
	s.Add("DevStage", apigateway.Stage{
		RestApi:    weft.Ref{Name: "API"},
		Deployment: weft.Ref{Name: "Deployment"},
		StageName:  "dev",
	})

	return s
}

func check(t *testing.T, s *weft.Stack) Result {
	t.Helper()
	return Run(graph.Build(s), Options{})
}

func ruleIDs(issues []weft.Issue) []string {
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.RuleID)
	}
	return ids
}

func TestValidStackPassesAllRules(t *testing.T) {
	result := check(t, validStack())
	assert.True(t, result.Success, "unexpected issues: %v", result.Issues)
	assert.Empty(t, result.Issues)
}

func TestDanglingReferenceRule(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret: weft.Ref{Name: "Missing"},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT001")
}

func TestDependencyCycleRule(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("A", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "B"}})
	s.Add("B", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "A"}})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT002")
}

func TestSecretLeastPrivilegeRejectsWildcard(t *testing.T) {
	s := validStack()
	s.Add("WideOpenPolicy", iam.RolePolicy{
		Role:       weft.Ref{Name: "ExecutionRole"},
		PolicyName: "wide-open",
		PolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{{
				Effect:   "Allow",
				Action:   "secretsmanager:GetSecretValue",
				Resource: "*",
			}},
		},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT003")
}

func TestSecretLeastPrivilegeRejectsMissingScope(t *testing.T) {
	s := validStack()
	s.Add("UnscopedPolicy", iam.RolePolicy{
		Role:       weft.Ref{Name: "ExecutionRole"},
		PolicyName: "unscoped",
		PolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{{
				Effect: "Allow",
				Action: "secretsmanager:GetSecretValue",
			}},
		},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT003")
}

func TestSecretLeastPrivilegeRejectsNonSecretTarget(t *testing.T) {
	s := validStack()
	s.Add("WrongTargetPolicy", iam.RolePolicy{
		Role:       weft.Ref{Name: "ExecutionRole"},
		PolicyName: "wrong-target",
		PolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{{
				Effect:   "Allow",
				Action:   "secretsmanager:GetSecretValue",
				Resource: weft.AttrRef{Resource: "Fn", Attribute: "Arn"},
			}},
		},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT003")
}

func TestPermissionSourceScopeRejectsMissingSourceArn(t *testing.T) {
	s := validStack()
	s.Add("LoosePermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Principal:    apigateway.ServicePrincipal,
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT004")
}

func TestPermissionSourceScopeRejectsWildcardStage(t *testing.T) {
	s := validStack()
	s.Add("WildcardPermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
			":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"},
			"/*/GET/hello",
		}},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT004")
}

func TestPermissionSourceScopeRejectsUndeclaredSuffix(t *testing.T) {
	s := validStack()
	s.Add("MismatchedPermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
			":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"},
			"/prod/POST/goodbye",
		}},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT004")
}

func TestPermissionSourceScopeRejectsLiteralArn(t *testing.T) {
	s := validStack()
	s.Add("LiteralPermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Principal:    apigateway.ServicePrincipal,
		SourceArn:    weft.Join{Values: []any{"arn:aws:execute-api:us-east-1:123:abc/dev/GET/hello"}},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT004")
}

func TestStaleStageTriggerRejectsMissingIntegration(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("API", apigateway.RestApi{Name: "api"})
	s.Add("HelloResource", apigateway.Resource{
		RestApi:  weft.Ref{Name: "API"},
		Parent:   weft.AttrRef{Resource: "API", Attribute: "RootResourceId"},
		PathPart: "hello",
	})
	s.Add("HelloMethod", apigateway.Method{
		RestApi:           weft.Ref{Name: "API"},
		Resource:          weft.Ref{Name: "HelloResource"},
		HttpMethod:        "GET",
		AuthorizationType: apigateway.AuthorizationIAM,
	})
	s.Add("HelloIntegration", apigateway.Integration{
		RestApi:  weft.Ref{Name: "API"},
		Resource: weft.Ref{Name: "HelloResource"},
		Method:   weft.Ref{Name: "HelloMethod"},
		Type:     apigateway.IntegrationAWSProxy,
		Uri:      "arn:aws:apigateway:us-east-1:lambda:path/x",
	})
	// Depends on the method but not the integration
	s.Add("Deployment", apigateway.Deployment{
		RestApi:  weft.Ref{Name: "API"},
		Triggers: []any{weft.Ref{Name: "HelloMethod"}},
	})
	s.Add("DevStage", apigateway.Stage{
		RestApi:    weft.Ref{Name: "API"},
		Deployment: weft.Ref{Name: "Deployment"},
		StageName:  "dev",
	})

	result := Run(graph.Build(s), Options{EnabledRules: []string{"WFT005"}})
	require.False(t, result.Success)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Deployment", result.Issues[0].Resource)
	assert.Contains(t, result.Issues[0].Message, "HelloIntegration")
}

func TestRoleTrustScopeRejectsForeignPrincipal(t *testing.T) {
	s := validStack()
	s.Add("BadRole", iam.Role{
		RoleName:                 "bad",
		AssumeRolePolicyDocument: policy.TrustPolicy("ec2.amazonaws.com"),
	})
	s.Add("BadFn", lambda.Function{
		FunctionName: "bad-fn",
		Handler:      "index.handler",
		Runtime:      lambda.RuntimeNodejs18,
		Role:         weft.AttrRef{Resource: "BadRole", Attribute: "Arn"},
		Code:         lambda.Code{ZipFile: "lambda.zip"},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT006")
}

func TestRoleTrustScopeRejectsExtraStatements(t *testing.T) {
	s := validStack()
	s.Add("WideRole", iam.Role{
		RoleName: "wide",
		AssumeRolePolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{
				policy.AssumeRoleStatement(iam.LambdaServicePrincipal),
				policy.AssumeRoleStatement("ec2.amazonaws.com"),
			},
		},
	})
	s.Add("WideFn", lambda.Function{
		FunctionName: "wide-fn",
		Handler:      "index.handler",
		Runtime:      lambda.RuntimeNodejs18,
		Role:         weft.AttrRef{Resource: "WideRole", Attribute: "Arn"},
		Code:         lambda.Code{ZipFile: "lambda.zip"},
	})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Contains(t, ruleIDs(result.Issues), "WFT006")
}

func TestSecretVersionCardinalityRejectsMissingVersion(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})

	result := Run(graph.Build(s), Options{EnabledRules: []string{"WFT007"}})
	require.False(t, result.Success)
	assert.Contains(t, result.Issues[0].Message, "0 current versions")
}

func TestSecretVersionCardinalityRejectsMultipleVersions(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})
	s.Add("V1", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "AppSecret"}, SecretString: "a"})
	s.Add("V2", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "AppSecret"}, SecretString: "b"})

	result := Run(graph.Build(s), Options{EnabledRules: []string{"WFT007"}})
	require.False(t, result.Success)
	assert.Contains(t, result.Issues[0].Message, "2 current versions")
}

func TestEnumValuesRule(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("API", apigateway.RestApi{Name: "api"})
	s.Add("HelloResource", apigateway.Resource{
		RestApi:  weft.Ref{Name: "API"},
		Parent:   weft.AttrRef{Resource: "API", Attribute: "RootResourceId"},
		PathPart: "hello",
	})
	s.Add("BadMethod", apigateway.Method{
		RestApi:           weft.Ref{Name: "API"},
		Resource:          weft.Ref{Name: "HelloResource"},
		HttpMethod:        "FETCH",
		AuthorizationType: "SOMETIMES",
	})
	s.Add("BadIntegration", apigateway.Integration{
		RestApi:  weft.Ref{Name: "API"},
		Resource: weft.Ref{Name: "HelloResource"},
		Method:   weft.Ref{Name: "BadMethod"},
		Type:     "TELEPATHY",
		Uri:      "arn:aws:apigateway:us-east-1:lambda:path/x",
	})

	result := Run(graph.Build(s), Options{EnabledRules: []string{"WFT008"}})
	require.False(t, result.Success)
	assert.Len(t, result.Issues, 3)
}

func TestRunReportsStackErrors(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("Dup", secretsmanager.Secret{Name: "a"})
	s.Add("Dup", secretsmanager.Secret{Name: "b"})

	result := check(t, s)
	require.False(t, result.Success)
	assert.Equal(t, "WFT000", result.Issues[0].RuleID)
}

func TestEnabledRulesFilter(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})

	// Only the dangling-reference rule runs; the missing version is not
	// reported.
	result := Run(graph.Build(s), Options{EnabledRules: []string{"WFT001"}})
	assert.True(t, result.Success)
	assert.Empty(t, result.Issues)
}

func TestAllRulesHaveUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, rule := range AllRules() {
		assert.False(t, seen[rule.ID()], "duplicate rule ID %s", rule.ID())
		assert.NotEmpty(t, rule.Description())
		seen[rule.ID()] = true
	}
}
