package weft

import "encoding/json"

// Ref is a reference to another resource's identifier. Assigning a Ref to a
// resource field establishes a dependency edge to the named resource.
//
// Example:
//
//	apigateway.Resource{
//	    RestApi: weft.Ref{"API"},
//	    ...
//	}
type Ref struct {
	// Name is the logical name of the referenced resource.
	Name string
}

// MarshalJSON serializes Ref to {"Weft::Ref": name}.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Weft::Ref": r.Name})
}

// IsZero returns true if the Ref has not been populated.
func (r Ref) IsZero() bool {
	return r.Name == ""
}

// AttrRef is a reference to an attribute of another resource, such as a
// role's ARN. The attribute is resolved from live state at apply time.
//
// Example:
//
//	lambda.Function{
//	    Role: weft.AttrRef{Resource: "ExecutionRole", Attribute: "Arn"},
//	    ...
//	}
type AttrRef struct {
	// Resource is the logical name of the referenced resource.
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "RootResourceId").
	Attribute string
}

// MarshalJSON serializes AttrRef to {"Weft::GetAtt": [resource, attribute]}.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Weft::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// Join concatenates literal strings and references into a single string
// value, resolved at apply time. Used for composite values such as ARNs.
//
// Example:
//
//	weft.Join{Values: []any{
//	    "arn:aws:execute-api:", weft.AWS_REGION, ":", weft.AWS_ACCOUNT_ID,
//	    ":", weft.Ref{"API"}, "/dev/GET/hello",
//	}}
type Join struct {
	// Delimiter is inserted between values. Empty means plain concatenation.
	Delimiter string
	// Values are the parts to join; each may be a string, Ref, or AttrRef.
	Values []any
}

// MarshalJSON serializes Join to {"Weft::Join": [delimiter, values]}.
func (j Join) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]any{
		"Weft::Join": {j.Delimiter, j.Values},
	})
}

// Pseudo-references are resolved by the engine from the target account and
// region rather than from a declared resource.
var (
	// AWS_REGION resolves to the region the stack is applied to.
	AWS_REGION = Ref{"AWS::Region"}

	// AWS_ACCOUNT_ID resolves to the account ID of the applying credentials.
	AWS_ACCOUNT_ID = Ref{"AWS::AccountId"}

	// AWS_PARTITION resolves to the partition (aws, aws-cn, aws-us-gov).
	AWS_PARTITION = Ref{"AWS::Partition"}
)

// IsPseudo reports whether name refers to a pseudo-reference rather than a
// declared resource.
func IsPseudo(name string) bool {
	switch name {
	case "AWS::Region", "AWS::AccountId", "AWS::Partition":
		return true
	}
	return false
}
