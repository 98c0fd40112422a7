package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/serialize"
)

// Resolver maps logical resource names to live state: the physical
// identifier each resource converged to, plus any attributes (ARNs,
// generated IDs) later resources reference.
type Resolver struct {
	// Region and AccountID back the pseudo-references.
	Region    string
	AccountID string
	Partition string

	identities map[string]string
	attrs      map[string]map[string]string
}

// NewResolver creates an empty resolver for the given account facts.
func NewResolver(region, accountID string) *Resolver {
	return &Resolver{
		Region:     region,
		AccountID:  accountID,
		Partition:  "aws",
		identities: make(map[string]string),
		attrs:      make(map[string]map[string]string),
	}
}

// SetIdentity records the physical identifier a resource converged to.
func (r *Resolver) SetIdentity(name, id string) {
	r.identities[name] = id
}

// SetAttr records a live attribute of a resource.
func (r *Resolver) SetAttr(name, attr, value string) {
	if r.attrs[name] == nil {
		r.attrs[name] = make(map[string]string)
	}
	r.attrs[name][attr] = value
}

// Resolve converts a declared value to its live string form: literals pass
// through, Refs resolve to physical identifiers, AttrRefs to recorded
// attributes, Joins to their concatenation.
func (r *Resolver) Resolve(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil

	case weft.Ref:
		if weft.IsPseudo(val.Name) {
			return r.pseudo(val.Name)
		}
		id, ok := r.identities[val.Name]
		if !ok {
			return "", fmt.Errorf("identity of %q not resolved yet", val.Name)
		}
		return id, nil

	case weft.AttrRef:
		attr, ok := r.attrs[val.Resource][val.Attribute]
		if !ok {
			return "", fmt.Errorf("attribute %s of %q not resolved yet", val.Attribute, val.Resource)
		}
		return attr, nil

	case weft.Join:
		parts := make([]string, 0, len(val.Values))
		for _, part := range val.Values {
			resolved, err := r.Resolve(part)
			if err != nil {
				return "", err
			}
			parts = append(parts, resolved)
		}
		return strings.Join(parts, val.Delimiter), nil

	default:
		return "", fmt.Errorf("cannot resolve value of type %T", v)
	}
}

// ResolveJSON serializes v (e.g., a policy document) with every reference
// replaced by its live value, and returns the JSON string the control plane
// accepts.
func (r *Resolver) ResolveJSON(v any) (string, error) {
	tree, err := serialize.Value(v)
	if err != nil {
		return "", err
	}

	resolved, err := r.resolveTree(tree)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resolveTree walks a serialized value tree, replacing the marshaled forms
// of Ref, AttrRef, and Join with resolved strings.
func (r *Resolver) resolveTree(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Weft::Ref"]; ok {
				name, _ := ref.(string)
				return r.Resolve(weft.Ref{Name: name})
			}
			if raw, ok := val["Weft::GetAtt"]; ok {
				pair, _ := raw.([]any)
				if len(pair) == 2 {
					res, _ := pair[0].(string)
					attr, _ := pair[1].(string)
					return r.Resolve(weft.AttrRef{Resource: res, Attribute: attr})
				}
				return nil, fmt.Errorf("malformed Weft::GetAtt value")
			}
			if raw, ok := val["Weft::Join"]; ok {
				args, _ := raw.([]any)
				if len(args) != 2 {
					return nil, fmt.Errorf("malformed Weft::Join value")
				}
				delim, _ := args[0].(string)
				values, _ := args[1].([]any)

				parts := make([]string, 0, len(values))
				for _, part := range values {
					resolved, err := r.resolveTree(part)
					if err != nil {
						return nil, err
					}
					s, ok := resolved.(string)
					if !ok {
						return nil, fmt.Errorf("join part resolved to non-string %T", resolved)
					}
					parts = append(parts, s)
				}
				return strings.Join(parts, delim), nil
			}
		}

		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.resolveTree(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.resolveTree(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil

	default:
		return v, nil
	}
}

func (r *Resolver) pseudo(name string) (string, error) {
	switch name {
	case "AWS::Region":
		return r.Region, nil
	case "AWS::AccountId":
		return r.AccountID, nil
	case "AWS::Partition":
		return r.Partition, nil
	}
	return "", fmt.Errorf("unknown pseudo-reference %q", name)
}
