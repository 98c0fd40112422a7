// Package iam contains IAM resource types.
package iam

import "github.com/weftline/weft/policy"

// Role is an execution identity. The trust policy names exactly the
// principals allowed to assume it.
type Role struct {
	// RoleName is the name of the role.
	RoleName string
	// AssumeRolePolicyDocument is the trust policy.
	AssumeRolePolicyDocument policy.Document
	// Description is optional documentation for the role.
	Description string
}

// ResourceType returns the resource type identifier.
func (Role) ResourceType() string { return "AWS::IAM::Role" }

// RolePolicy is an inline permissions policy embedded in a role. Statements
// should be least-privilege: scoped to specific resource references, not
// wildcards.
type RolePolicy struct {
	// Role references the Role the policy is embedded in.
	Role any
	// PolicyName is the inline policy name.
	PolicyName string
	// PolicyDocument is the permissions document.
	PolicyDocument policy.Document
}

// ResourceType returns the resource type identifier.
func (RolePolicy) ResourceType() string { return "AWS::IAM::RolePolicy" }

// RolePolicyAttachment attaches a managed policy to a role.
type RolePolicyAttachment struct {
	// Role references the Role the policy is attached to.
	Role any
	// PolicyArn is the ARN of the managed policy.
	PolicyArn string
}

// ResourceType returns the resource type identifier.
func (RolePolicyAttachment) ResourceType() string { return "AWS::IAM::RolePolicyAttachment" }

// Well-known managed policy ARNs.
const (
	// LambdaBasicExecutionRoleArn grants CloudWatch Logs write access for
	// Lambda functions.
	LambdaBasicExecutionRoleArn = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
)

// LambdaServicePrincipal is the service principal for Lambda execution roles.
const LambdaServicePrincipal = "lambda.amazonaws.com"
