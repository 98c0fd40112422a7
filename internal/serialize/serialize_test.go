package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

func TestResourceSerializesFields(t *testing.T) {
	props, err := Resource(secretsmanager.Secret{
		Name:        "my_secret",
		Description: "app secret",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Name":        "my_secret",
		"Description": "app secret",
	}, props)
}

func TestResourceOmitsZeroValues(t *testing.T) {
	props, err := Resource(secretsmanager.Secret{Name: "my_secret"})
	require.NoError(t, err)

	assert.Contains(t, props, "Name")
	assert.NotContains(t, props, "Description")
}

func TestResourceSerializesRefs(t *testing.T) {
	props, err := Resource(secretsmanager.SecretVersion{
		Secret:       weft.Ref{Name: "AppSecret"},
		SecretString: "password123!",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Weft::Ref": "AppSecret"}, props["Secret"])
	assert.Equal(t, "password123!", props["SecretString"])
}

func TestResourceSerializesAttrRefs(t *testing.T) {
	props, err := Resource(lambda.Function{
		FunctionName: "fn",
		Handler:      "index.handler",
		Runtime:      lambda.RuntimeNodejs18,
		Role:         weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
		Code:         lambda.Code{ZipFile: "lambda.zip"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Weft::GetAtt": []any{"ExecutionRole", "Arn"},
	}, props["Role"])
	assert.Equal(t, map[string]any{"ZipFile": "lambda.zip"}, props["Code"])
}

func TestResourceSerializesNestedJoin(t *testing.T) {
	props, err := Resource(lambda.Permission{
		FunctionName: weft.Ref{Name: "Fn"},
		Action:       lambda.InvokeAction,
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:aws:execute-api:", weft.Ref{Name: "API"}, "/dev/GET/hello",
		}},
	})
	require.NoError(t, err)

	source, ok := props["SourceArn"].(map[string]any)
	require.True(t, ok)
	args, ok := source["Weft::Join"].([]any)
	require.True(t, ok)
	require.Len(t, args, 2)
	assert.Equal(t, "", args[0])
	assert.Equal(t, []any{
		"arn:aws:execute-api:",
		map[string]any{"Weft::Ref": "API"},
		"/dev/GET/hello",
	}, args[1])
}

func TestResourceOmitsEmptyCode(t *testing.T) {
	props, err := Resource(lambda.Function{
		FunctionName: "fn",
		Handler:      "index.handler",
	})
	require.NoError(t, err)

	assert.NotContains(t, props, "Code")
	assert.NotContains(t, props, "Timeout")
	assert.NotContains(t, props, "Environment")
}

func TestResourceSerializesMaps(t *testing.T) {
	props, err := Resource(lambda.Function{
		FunctionName: "fn",
		Environment:  map[string]string{"SECRET_NAME": "my_secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"SECRET_NAME": "my_secret"}, props["Environment"])
}

func TestValue(t *testing.T) {
	v, err := Value(weft.Ref{Name: "API"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Weft::Ref": "API"}, v)

	v, err = Value("literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", v)
}
