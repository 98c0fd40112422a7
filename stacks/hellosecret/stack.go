// Package hellosecret declares a minimal serverless API: a secret, a Lambda
// function allowed to read it, and a REST API exposing GET /hello on a dev
// stage to IAM-authenticated callers.
package hellosecret

import (
	weft "github.com/weftline/weft"
	"github.com/weftline/weft/policy"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/iam"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

// Name is the stack name used by the CLI registry.
const Name = "hellosecret"

// StageName is the single deployed stage.
const StageName = "dev"

// Stack declares the full resource graph. Everything downstream works from
// this value: build serializes it, validate checks it, apply converges it.
func Stack() *weft.Stack {
	s := weft.NewStack(Name)

	s.Add("AppSecret", secretsmanager.Secret{
		Name:        "my_secret",
		Description: "Application secret read by the hello function",
	})

	s.Add("AppSecretValue", secretsmanager.SecretVersion{
		Secret:       weft.Ref{Name: "AppSecret"},
		SecretString: "password123!",
	})

	s.Add("ExecutionRole", iam.Role{
		RoleName:                 "hello-lambda-execution",
		AssumeRolePolicyDocument: policy.TrustPolicy(iam.LambdaServicePrincipal),
		Description:              "Execution role for the hello function",
	})

	s.Add("LogsPolicyAttachment", iam.RolePolicyAttachment{
		Role:      weft.Ref{Name: "ExecutionRole"},
		PolicyArn: iam.LambdaBasicExecutionRoleArn,
	})

	// Scoped to the one secret's ARN, not "*" and not the whole service.
	s.Add("SecretReadPolicy", iam.RolePolicy{
		Role:       weft.Ref{Name: "ExecutionRole"},
		PolicyName: "read-app-secret",
		PolicyDocument: policy.Document{
			Version: policy.DefaultVersion,
			Statement: []policy.Statement{{
				Effect:   "Allow",
				Action:   "secretsmanager:GetSecretValue",
				Resource: weft.AttrRef{Resource: "AppSecret", Attribute: "Arn"},
			}},
		},
	})

	s.Add("HelloFunction", lambda.Function{
		FunctionName: "my_lambda_function",
		Description:  "Returns a greeting; reads its secret at runtime",
		Handler:      "index.handler",
		Runtime:      lambda.RuntimeNodejs18,
		Role:         weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
		Code:         lambda.Code{ZipFile: "lambda.zip"},
		Environment: map[string]string{
			"SECRET_NAME": "my_secret",
		},
	})

	s.Add("API", apigateway.RestApi{
		Name:        "hello-api",
		Description: "REST API fronting the hello function",
	})

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
			weft.AttrRef{Resource: "HelloFunction", Attribute: "Arn"},
			"/invocations",
		}},
	})

	// Grant scoped to exactly GET /hello on the dev stage of this API.
	s.Add("InvokePermission", lambda.Permission{
		FunctionName: weft.Ref{Name: "HelloFunction"},
		Action:       lambda.InvokeAction,
		Principal:    apigateway.ServicePrincipal,
		SourceArn: weft.Join{Values: []any{
			"arn:", weft.AWS_PARTITION, ":execute-api:", weft.AWS_REGION,
			":", weft.AWS_ACCOUNT_ID, ":", weft.Ref{Name: "API"},
			"/" + StageName + "/GET/hello",
		}},
	})

	// The snapshot must trail every method and integration, or a change
	// would look applied while the stage still serves the old snapshot.
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
		StageName:  StageName,
	})

	s.AddOutput("InvokeUrl", weft.Output{
		Description: "Invoke URL for GET /hello on the dev stage",
		Value: weft.Join{Values: []any{
			"https://", weft.Ref{Name: "API"}, ".execute-api.",
			weft.AWS_REGION, ".amazonaws.com/" + StageName + "/hello",
		}},
	})

	return s
}
