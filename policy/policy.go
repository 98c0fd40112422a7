// Package policy provides IAM policy document types.
//
// Documents are declared as typed Go values and serialized to the JSON form
// the IAM control plane accepts:
//
//	var ReadSecret = policy.Statement{
//	    Effect:   "Allow",
//	    Action:   "secretsmanager:GetSecretValue",
//	    Resource: weft.AttrRef{Resource: "AppSecret", Attribute: "Arn"},
//	}
package policy

import "encoding/json"

// DefaultVersion is the current IAM policy language version.
const DefaultVersion = "2012-10-17"

// Document represents an IAM policy document.
//
// Example:
//
//	var Trust = policy.Document{
//	    Version:   policy.DefaultVersion,
//	    Statement: []policy.Statement{AssumeRole},
//	}
type Document struct {
	Version   string      `json:"Version,omitempty"`
	Statement []Statement `json:"Statement"`
}

// IsZero returns true if the document has not been populated.
func (d Document) IsZero() bool {
	return d.Version == "" && len(d.Statement) == 0
}

// Statement represents a single IAM policy statement. Action and Resource
// accept a string, a slice, or a reference value resolved at apply time.
type Statement struct {
	Sid       string         `json:"Sid,omitempty"`
	Effect    string         `json:"Effect"`
	Principal any            `json:"Principal,omitempty"`
	Action    any            `json:"Action,omitempty"`
	Resource  any            `json:"Resource,omitempty"`
	Condition map[string]any `json:"Condition,omitempty"`
}

// ServicePrincipal represents a service principal such as
// lambda.amazonaws.com. Serializes to {"Service": ...}.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"Service": p[0]})
	}
	return json.Marshal(map[string]any{"Service": []any(p)})
}

// AWSPrincipal represents an AWS account, role, or user principal.
// Serializes to {"AWS": ...}.
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	if len(p) == 1 {
		return json.Marshal(map[string]any{"AWS": p[0]})
	}
	return json.Marshal(map[string]any{"AWS": []any(p)})
}

// AllPrincipal is the wildcard principal "*".
const AllPrincipal = "*"

// Condition operator constants. Use these as keys in Condition maps.
const (
	StringEquals = "StringEquals"
	StringLike   = "StringLike"
	ArnEquals    = "ArnEquals"
	ArnLike      = "ArnLike"
	Bool         = "Bool"
	IpAddress    = "IpAddress"
	Null         = "Null"
)

// AssumeRoleStatement returns the trust statement allowing the given service
// to assume a role.
func AssumeRoleStatement(service string) Statement {
	return Statement{
		Effect:    "Allow",
		Principal: ServicePrincipal{service},
		Action:    "sts:AssumeRole",
	}
}

// TrustPolicy returns a trust document for exactly the given service
// principal.
func TrustPolicy(service string) Document {
	return Document{
		Version:   DefaultVersion,
		Statement: []Statement{AssumeRoleStatement(service)},
	}
}
