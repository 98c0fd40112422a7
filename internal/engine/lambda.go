package engine

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/weftline/weft/resources/lambda"
)

// applyFunction ensures the function exists with the declared configuration
// and code. The code artifact is content-addressed: the package hash is
// compared against the deployed CodeSha256 so a changed artifact forces a
// redeploy.
func (run *applyRun) applyFunction(ctx context.Context, name string, fn lambda.Function) (Op, error) {
	client := run.engine.Client.Lambda

	pkg, err := os.ReadFile(fn.Code.ZipFile)
	if err != nil {
		return "", fmt.Errorf("reading code artifact: %w", err)
	}

	hash := packageHash(pkg)
	if fn.SourceCodeHash != "" && fn.SourceCodeHash != hash {
		return "", fmt.Errorf("code artifact %s does not match declared hash", fn.Code.ZipFile)
	}

	roleArn, err := run.resolver.Resolve(fn.Role)
	if err != nil {
		return "", err
	}

	got, gerr := client.GetFunction(ctx, &awslambda.GetFunctionInput{
		FunctionName: aws.String(fn.FunctionName),
	})

	if gerr != nil {
		if !isNotFound(gerr) {
			return "", fmt.Errorf("GetFunction failed: %w", gerr)
		}
		return run.createFunction(ctx, name, fn, pkg, roleArn)
	}

	op := OpUnchanged
	cfg := got.Configuration

	if configDrifted(cfg, fn, roleArn) {
		_, uerr := client.UpdateFunctionConfiguration(ctx, &awslambda.UpdateFunctionConfigurationInput{
			FunctionName: aws.String(fn.FunctionName),
			Description:  optionalString(fn.Description),
			Role:         aws.String(roleArn),
			Handler:      aws.String(fn.Handler),
			Runtime:      lambdatypes.Runtime(fn.Runtime),
			Timeout:      optionalInt32(fn.Timeout),
			MemorySize:   optionalInt32(fn.MemorySize),
			Environment:  &lambdatypes.Environment{Variables: fn.Environment},
		})
		if uerr != nil {
			return "", fmt.Errorf("UpdateFunctionConfiguration failed: %w", uerr)
		}
		op = OpUpdated
	}

	if aws.ToString(cfg.CodeSha256) != hash {
		if err := run.waitForFunction(ctx, fn.FunctionName); err != nil {
			return "", err
		}
		_, cerr := client.UpdateFunctionCode(ctx, &awslambda.UpdateFunctionCodeInput{
			FunctionName: aws.String(fn.FunctionName),
			ZipFile:      pkg,
		})
		if cerr != nil {
			return "", fmt.Errorf("UpdateFunctionCode failed: %w", cerr)
		}
		op = OpUpdated
	}

	if op == OpUpdated {
		if err := run.waitForFunction(ctx, fn.FunctionName); err != nil {
			return "", err
		}
	}

	run.resolver.SetIdentity(name, fn.FunctionName)
	run.resolver.SetAttr(name, "Arn", aws.ToString(cfg.FunctionArn))
	return op, nil
}

func (run *applyRun) createFunction(ctx context.Context, name string, fn lambda.Function, pkg []byte, roleArn string) (Op, error) {
	client := run.engine.Client.Lambda

	out, err := client.CreateFunction(ctx, &awslambda.CreateFunctionInput{
		FunctionName: aws.String(fn.FunctionName),
		Description:  optionalString(fn.Description),
		Handler:      aws.String(fn.Handler),
		Runtime:      lambdatypes.Runtime(fn.Runtime),
		Role:         aws.String(roleArn),
		Code:         &lambdatypes.FunctionCode{ZipFile: pkg},
		Timeout:      optionalInt32(fn.Timeout),
		MemorySize:   optionalInt32(fn.MemorySize),
		Environment:  &lambdatypes.Environment{Variables: fn.Environment},
	})
	if err != nil {
		return "", fmt.Errorf("CreateFunction failed: %w", err)
	}

	if err := run.waitForFunction(ctx, fn.FunctionName); err != nil {
		return "", err
	}

	run.resolver.SetIdentity(name, fn.FunctionName)
	run.resolver.SetAttr(name, "Arn", aws.ToString(out.FunctionArn))
	return OpCreated, nil
}

// applyPermission ensures the invoke permission grant exists. The statement
// ID is the logical name, so re-applies hit the same statement.
func (run *applyRun) applyPermission(ctx context.Context, name string, p lambda.Permission) (Op, error) {
	client := run.engine.Client.Lambda

	functionName, err := run.resolver.Resolve(p.FunctionName)
	if err != nil {
		return "", err
	}

	sourceArn, err := run.resolver.Resolve(p.SourceArn)
	if err != nil {
		return "", err
	}

	action := p.Action
	if action == "" {
		action = lambda.InvokeAction
	}

	run.resolver.SetIdentity(name, name)

	add := func() error {
		_, err := client.AddPermission(ctx, &awslambda.AddPermissionInput{
			FunctionName: aws.String(functionName),
			StatementId:  aws.String(name),
			Action:       aws.String(action),
			Principal:    aws.String(p.Principal),
			SourceArn:    aws.String(sourceArn),
		})
		return err
	}

	aerr := add()
	if aerr == nil {
		return OpCreated, nil
	}
	if !isAlreadyExists(aerr) {
		return "", fmt.Errorf("AddPermission failed: %w", aerr)
	}

	// The statement ID is taken; replace the grant only if its content drifted.
	pol, gerr := client.GetPolicy(ctx, &awslambda.GetPolicyInput{
		FunctionName: aws.String(functionName),
	})
	if gerr != nil && !isNotFound(gerr) {
		return "", fmt.Errorf("GetPolicy failed: %w", gerr)
	}
	if gerr == nil && statementMatches(aws.ToString(pol.Policy), name, action, p.Principal, sourceArn) {
		return OpUnchanged, nil
	}

	_, rerr := client.RemovePermission(ctx, &awslambda.RemovePermissionInput{
		FunctionName: aws.String(functionName),
		StatementId:  aws.String(name),
	})
	if rerr != nil && !isNotFound(rerr) {
		return "", fmt.Errorf("RemovePermission failed: %w", rerr)
	}

	if err := add(); err != nil {
		return "", fmt.Errorf("AddPermission failed: %w", err)
	}
	return OpUpdated, nil
}

// statementMatches reports whether the function policy document carries a
// statement with the given ID granting exactly the declared action, principal,
// and source ARN condition.
func statementMatches(policyJSON, statementID, action, principal, sourceArn string) bool {
	var doc struct {
		Statement []struct {
			Sid       string `json:"Sid"`
			Action    string `json:"Action"`
			Principal struct {
				Service string `json:"Service"`
			} `json:"Principal"`
			Condition struct {
				ArnLike map[string]string `json:"ArnLike"`
			} `json:"Condition"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(policyJSON), &doc); err != nil {
		return false
	}
	for _, stmt := range doc.Statement {
		if stmt.Sid != statementID {
			continue
		}
		return stmt.Action == action &&
			stmt.Principal.Service == principal &&
			stmt.Condition.ArnLike["AWS:SourceArn"] == sourceArn
	}
	return false
}

// waitForFunction blocks until the function leaves its in-progress state.
func (run *applyRun) waitForFunction(ctx context.Context, functionName string) error {
	waiter := awslambda.NewFunctionActiveV2Waiter(run.engine.Client.Lambda)
	err := waiter.Wait(ctx, &awslambda.GetFunctionInput{
		FunctionName: aws.String(functionName),
	}, 60*time.Second)
	if err != nil {
		return fmt.Errorf("waiting for function %s: %w", functionName, err)
	}
	return nil
}

// configDrifted reports whether the live configuration differs from the
// declaration.
func configDrifted(cfg *lambdatypes.FunctionConfiguration, fn lambda.Function, roleArn string) bool {
	if aws.ToString(cfg.Handler) != fn.Handler {
		return true
	}
	if string(cfg.Runtime) != fn.Runtime {
		return true
	}
	if aws.ToString(cfg.Role) != roleArn {
		return true
	}
	if fn.Timeout != 0 && aws.ToInt32(cfg.Timeout) != fn.Timeout {
		return true
	}
	if fn.MemorySize != 0 && aws.ToInt32(cfg.MemorySize) != fn.MemorySize {
		return true
	}
	if fn.Description != "" && aws.ToString(cfg.Description) != fn.Description {
		return true
	}
	return environmentDrifted(cfg.Environment, fn.Environment)
}

// environmentDrifted reports whether the declared environment variables differ
// from the live ones. An empty declaration leaves the live environment alone.
func environmentDrifted(live *lambdatypes.EnvironmentResponse, declared map[string]string) bool {
	if len(declared) == 0 {
		return false
	}
	if live == nil {
		return true
	}
	return !maps.Equal(live.Variables, declared)
}

// packageHash returns the base64 SHA-256 of a deployment package, the same
// encoding Lambda reports as CodeSha256.
func packageHash(pkg []byte) string {
	sum := sha256.Sum256(pkg)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func optionalInt32(v int32) *int32 {
	if v == 0 {
		return nil
	}
	return aws.Int32(v)
}
