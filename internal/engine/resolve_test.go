package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/policy"
)

func testResolver() *Resolver {
	r := NewResolver("us-east-1", "123456789012")
	r.SetIdentity("API", "abc123def4")
	r.SetIdentity("AppSecret", "my_secret")
	r.SetAttr("AppSecret", "Arn", "arn:aws:secretsmanager:us-east-1:123456789012:secret:my_secret-AbCdEf")
	r.SetAttr("ExecutionRole", "Arn", "arn:aws:iam::123456789012:role/exec")
	return r
}

func TestResolveLiteral(t *testing.T) {
	got, err := testResolver().Resolve("literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)
}

func TestResolveRef(t *testing.T) {
	got, err := testResolver().Resolve(weft.Ref{Name: "API"})
	require.NoError(t, err)
	assert.Equal(t, "abc123def4", got)
}

func TestResolvePseudoRefs(t *testing.T) {
	r := testResolver()

	region, err := r.Resolve(weft.AWS_REGION)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", region)

	account, err := r.Resolve(weft.AWS_ACCOUNT_ID)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", account)

	partition, err := r.Resolve(weft.AWS_PARTITION)
	require.NoError(t, err)
	assert.Equal(t, "aws", partition)
}

func TestResolveAttrRef(t *testing.T) {
	got, err := testResolver().Resolve(weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:role/exec", got)
}

func TestResolveJoin(t *testing.T) {
	join := weft.Join{Values: []any{
		"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
		":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"}, "/dev/GET/hello",
	}}

	got, err := testResolver().Resolve(join)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:execute-api:us-east-1:123456789012:abc123def4/dev/GET/hello", got)
}

func TestResolveJoinWithDelimiter(t *testing.T) {
	join := weft.Join{Delimiter: ":", Values: []any{"a", "b", "c"}}

	got, err := testResolver().Resolve(join)
	require.NoError(t, err)
	assert.Equal(t, "a:b:c", got)
}

func TestResolveUnknownRef(t *testing.T) {
	_, err := testResolver().Resolve(weft.Ref{Name: "Nowhere"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nowhere")
}

func TestResolveUnknownAttr(t *testing.T) {
	_, err := testResolver().Resolve(weft.AttrRef{Resource: "API", Attribute: "Arn"})
	assert.Error(t, err)
}

func TestResolveUnsupportedType(t *testing.T) {
	_, err := testResolver().Resolve(42)
	assert.Error(t, err)
}

func TestResolveJSONPolicyDocument(t *testing.T) {
	doc := policy.Document{
		Version: policy.DefaultVersion,
		Statement: []policy.Statement{{
			Effect:   "Allow",
			Action:   "secretsmanager:GetSecretValue",
			Resource: weft.AttrRef{Resource: "AppSecret", Attribute: "Arn"},
		}},
	}

	got, err := testResolver().ResolveJSON(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Action": "secretsmanager:GetSecretValue",
			"Resource": "arn:aws:secretsmanager:us-east-1:123456789012:secret:my_secret-AbCdEf"
		}]
	}`, got)
}

func TestResolveJSONTrustPolicy(t *testing.T) {
	got, err := testResolver().ResolveJSON(policy.TrustPolicy("lambda.amazonaws.com"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"Service": "lambda.amazonaws.com"},
			"Action": "sts:AssumeRole"
		}]
	}`, got)
}

func TestResolveJSONJoinInsideDocument(t *testing.T) {
	doc := policy.Document{
		Version: policy.DefaultVersion,
		Statement: []policy.Statement{{
			Effect: "Allow",
			Action: "secretsmanager:GetSecretValue",
			Resource: weft.Join{Values: []any{
				"arn:aws:secretsmanager:", weft.AWS_REGION, ":",
				weft.AWS_ACCOUNT_ID, ":secret:my_secret-*",
			}},
		}},
	}

	got, err := testResolver().ResolveJSON(doc)
	require.NoError(t, err)
	assert.Contains(t, got, "arn:aws:secretsmanager:us-east-1:123456789012:secret:my_secret-*")
}

func TestSameJSONDocument(t *testing.T) {
	a := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow"}]}`
	b := `{
		"Statement": [{"Effect": "Allow"}],
		"Version": "2012-10-17"
	}`
	assert.True(t, sameJSONDocument(a, b))
	assert.False(t, sameJSONDocument(a, `{"Version":"2008-10-17"}`))

	// IAM returns URL-encoded documents
	encoded := "%7B%22Version%22%3A%222012-10-17%22%2C%22Statement%22%3A%5B%7B%22Effect%22%3A%22Allow%22%7D%5D%7D"
	assert.True(t, sameJSONDocument(encoded, a))
}

func TestPackageHash(t *testing.T) {
	// base64(sha256("hello")) as Lambda reports CodeSha256
	assert.Equal(t, "LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=", packageHash([]byte("hello")))
	assert.NotEqual(t, packageHash([]byte("a")), packageHash([]byte("b")))
}
