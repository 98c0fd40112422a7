package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/iam"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

func TestBuildCollectsRefs(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret:       weft.Ref{Name: "AppSecret"},
		SecretString: "value",
	})

	g := Build(s)

	node := g.Node("AppSecretValue")
	require.NotNil(t, node)
	assert.Equal(t, []string{"AppSecret"}, node.Dependencies())
	assert.Empty(t, g.Node("AppSecret").Dependencies())
}

func TestBuildCollectsAttrRefs(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("ExecutionRole", iam.Role{RoleName: "role"})
	s.Add("Fn", lambda.Function{
		FunctionName: "fn",
		Role:         weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
	})

	g := Build(s)

	node := g.Node("Fn")
	require.Len(t, node.Refs, 1)
	assert.Equal(t, RefUse{Target: "ExecutionRole", Attribute: "Arn"}, node.Refs[0])
}

func TestBuildRecursesIntoJoins(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("API", apigateway.RestApi{Name: "api"})
	s.Add("Grant", lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
			":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"}, "/dev/GET/hello",
		}},
	})

	g := Build(s)

	deps := g.Node("Grant").Dependencies()
	assert.Contains(t, deps, "API")
	assert.Contains(t, deps, "Fn")
	// Pseudo-references resolve to account facts, not declared resources
	assert.Len(t, deps, 2)
}

func TestBuildRecursesIntoSlices(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("Deployment", apigateway.Deployment{
		RestApi: weft.Ref{Name: "API"},
		Triggers: []any{
			weft.Ref{Name: "HelloMethod"},
			weft.Ref{Name: "HelloIntegration"},
		},
	})

	g := Build(s)

	deps := g.Node("Deployment").Dependencies()
	assert.Equal(t, []string{"API", "HelloMethod", "HelloIntegration"}, deps)
}

func TestDangling(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret: weft.Ref{Name: "Missing"},
	})

	g := Build(s)

	dangling := g.Dangling()
	require.Contains(t, dangling, "AppSecretValue")
	assert.Equal(t, "Missing", dangling["AppSecretValue"][0].Target)
}

func TestDanglingIncludesHints(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("A", secretsmanager.Secret{Name: "a"})
	s.DependOn("A", "Nowhere")

	g := Build(s)

	dangling := g.Dangling()
	require.Contains(t, dangling, "A")
	assert.Equal(t, "Nowhere", dangling["A"][0].Target)
}

func TestTopologicalOrder(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("Fn", lambda.Function{
		FunctionName: "fn",
		Role:         weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
	})
	s.Add("ExecutionRole", iam.Role{RoleName: "role"})
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})

	g := Build(s)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	// Independent nodes come alphabetically; Fn waits for its role
	assert.Equal(t, []string{"AppSecret", "ExecutionRole", "Fn"}, order)
}

func TestTopologicalOrderDeterministic(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("Zeta", secretsmanager.Secret{Name: "z"})
	s.Add("Alpha", secretsmanager.Secret{Name: "a"})
	s.Add("Mid", secretsmanager.SecretVersion{
		Secret: weft.Ref{Name: "Alpha"},
	})

	g := Build(s)

	first, err := g.TopologicalOrder()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Build(s).TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, first)
}

func TestTopologicalOrderRejectsDangling(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret: weft.Ref{Name: "Missing"},
	})

	_, err := Build(s).TopologicalOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing")
	assert.Contains(t, err.Error(), "AppSecretValue")
}

func TestTopologicalOrderRejectsCycles(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("A", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "B"}})
	s.Add("B", secretsmanager.SecretVersion{Secret: weft.Ref{Name: "A"}})

	_, err := Build(s).TopologicalOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDependenciesDeduplicated(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("Method", apigateway.Method{
		RestApi:    weft.Ref{Name: "API"},
		Resource:   weft.Ref{Name: "API"},
		HttpMethod: "GET",
	})

	g := Build(s)
	assert.Equal(t, []string{"API"}, g.Node("Method").Dependencies())
}

func TestExporterDOT(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})
	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret: weft.Ref{Name: "AppSecret"},
	})

	g := Build(s)

	out, err := (&Exporter{Format: FormatDOT}).ExportString(g)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "AppSecret")
	assert.Contains(t, out, "AppSecretValue")
}

func TestExporterMermaid(t *testing.T) {
	s := weft.NewStack("test")
	s.Add("AppSecret", secretsmanager.Secret{Name: "my_secret"})

	g := Build(s)

	out, err := (&Exporter{Format: FormatMermaid}).ExportString(g)
	require.NoError(t, err)
	assert.Contains(t, out, "graph")
}
