package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/weftline/weft/resources/iam"
)

// applyRole ensures the role exists with the declared trust policy.
func (run *applyRun) applyRole(ctx context.Context, name string, r iam.Role) (Op, error) {
	client := run.engine.Client.IAM

	trustJSON, err := run.resolver.ResolveJSON(r.AssumeRolePolicyDocument)
	if err != nil {
		return "", fmt.Errorf("resolving trust policy: %w", err)
	}

	out, err := client.CreateRole(ctx, &awsiam.CreateRoleInput{
		RoleName:                 aws.String(r.RoleName),
		AssumeRolePolicyDocument: aws.String(trustJSON),
		Description:              optionalString(r.Description),
	})
	if err == nil {
		run.resolver.SetIdentity(name, r.RoleName)
		run.resolver.SetAttr(name, "Arn", aws.ToString(out.Role.Arn))
		return OpCreated, nil
	}

	if !isAlreadyExists(err) {
		return "", fmt.Errorf("CreateRole failed: %w", err)
	}

	got, gerr := client.GetRole(ctx, &awsiam.GetRoleInput{RoleName: aws.String(r.RoleName)})
	if gerr != nil {
		return "", fmt.Errorf("GetRole failed: %w", gerr)
	}

	run.resolver.SetIdentity(name, r.RoleName)
	run.resolver.SetAttr(name, "Arn", aws.ToString(got.Role.Arn))

	if sameJSONDocument(aws.ToString(got.Role.AssumeRolePolicyDocument), trustJSON) {
		return OpUnchanged, nil
	}

	_, uerr := client.UpdateAssumeRolePolicy(ctx, &awsiam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(r.RoleName),
		PolicyDocument: aws.String(trustJSON),
	})
	if uerr != nil {
		return "", fmt.Errorf("UpdateAssumeRolePolicy failed: %w", uerr)
	}
	return OpUpdated, nil
}

// applyRolePolicy ensures the inline policy document matches the
// declaration. References inside the document (the secret ARN) resolve from
// live state, which is why the secret is applied before this node.
func (run *applyRun) applyRolePolicy(ctx context.Context, name string, rp iam.RolePolicy) (Op, error) {
	client := run.engine.Client.IAM

	roleName, err := run.resolver.Resolve(rp.Role)
	if err != nil {
		return "", err
	}

	docJSON, err := run.resolver.ResolveJSON(rp.PolicyDocument)
	if err != nil {
		return "", fmt.Errorf("resolving policy document: %w", err)
	}

	existing, gerr := client.GetRolePolicy(ctx, &awsiam.GetRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(rp.PolicyName),
	})

	op := OpCreated
	switch {
	case gerr == nil:
		if sameJSONDocument(aws.ToString(existing.PolicyDocument), docJSON) {
			run.resolver.SetIdentity(name, rp.PolicyName)
			return OpUnchanged, nil
		}
		op = OpUpdated
	case !isNotFound(gerr):
		return "", fmt.Errorf("GetRolePolicy failed: %w", gerr)
	}

	_, perr := client.PutRolePolicy(ctx, &awsiam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(rp.PolicyName),
		PolicyDocument: aws.String(docJSON),
	})
	if perr != nil {
		return "", fmt.Errorf("PutRolePolicy failed: %w", perr)
	}

	run.resolver.SetIdentity(name, rp.PolicyName)
	return op, nil
}

// applyRolePolicyAttachment ensures the managed policy is attached.
func (run *applyRun) applyRolePolicyAttachment(ctx context.Context, name string, att iam.RolePolicyAttachment) (Op, error) {
	client := run.engine.Client.IAM

	roleName, err := run.resolver.Resolve(att.Role)
	if err != nil {
		return "", err
	}

	attached, lerr := client.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	if lerr != nil {
		return "", fmt.Errorf("ListAttachedRolePolicies failed: %w", lerr)
	}

	run.resolver.SetIdentity(name, att.PolicyArn)
	for _, p := range attached.AttachedPolicies {
		if aws.ToString(p.PolicyArn) == att.PolicyArn {
			return OpUnchanged, nil
		}
	}

	_, aerr := client.AttachRolePolicy(ctx, &awsiam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(att.PolicyArn),
	})
	if aerr != nil && !isAlreadyExists(aerr) {
		return "", fmt.Errorf("AttachRolePolicy failed: %w", aerr)
	}
	return OpCreated, nil
}

// sameJSONDocument compares a live policy document (URL-encoded by IAM)
// against a declared JSON string, ignoring formatting.
func sameJSONDocument(live, declared string) bool {
	decoded, err := url.QueryUnescape(live)
	if err != nil {
		decoded = live
	}

	var a, b any
	if err := json.Unmarshal([]byte(decoded), &a); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(declared), &b); err != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}
