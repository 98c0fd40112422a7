package engine

import (
	"context"
	"fmt"

	"github.com/apex/log"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/internal/rules"
	"github.com/weftline/weft/resources/apigateway"
	"github.com/weftline/weft/resources/iam"
	"github.com/weftline/weft/resources/lambda"
	"github.com/weftline/weft/resources/secretsmanager"
)

// Op is the reconciliation outcome for one resource.
type Op string

const (
	// OpCreated means the resource did not exist and was created.
	OpCreated Op = "created"
	// OpUpdated means the resource existed but drifted and was converged.
	OpUpdated Op = "updated"
	// OpUnchanged means live state already matched the declaration.
	OpUnchanged Op = "unchanged"
)

// Action records the outcome for one resource.
type Action struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Op   Op     `json:"op"`
}

// Report summarizes an apply run.
type Report struct {
	Actions []Action          `json:"actions"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

// Counts returns the number of created, updated, and unchanged resources.
func (r *Report) Counts() (created, updated, unchanged int) {
	for _, a := range r.Actions {
		switch a.Op {
		case OpCreated:
			created++
		case OpUpdated:
			updated++
		case OpUnchanged:
			unchanged++
		}
	}
	return
}

// Changed reports whether the run changed anything.
func (r *Report) Changed() bool {
	created, updated, _ := r.Counts()
	return created+updated > 0
}

// Engine applies declared stacks against live AWS state.
type Engine struct {
	Client *Client
	Log    *log.Entry
}

// New creates an engine around an existing client.
func New(client *Client) *Engine {
	return &Engine{
		Client: client,
		Log:    log.WithField("component", "engine"),
	}
}

// Apply converges live state to the stack. The graph is validated first:
// a stack that fails rule validation is refused before any API call.
func (e *Engine) Apply(ctx context.Context, stack *weft.Stack) (*Report, error) {
	g := graph.Build(stack)

	if result := rules.Run(g, rules.Options{}); !result.Success {
		for _, issue := range result.Issues {
			e.Log.WithFields(log.Fields{
				"rule":     issue.RuleID,
				"resource": issue.Resource,
			}).Error(issue.Message)
		}
		return nil, fmt.Errorf("stack %q failed validation with %d issues", stack.Name(), len(result.Issues))
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	run := &applyRun{
		engine:   e,
		graph:    g,
		resolver: NewResolver(e.Client.Region, e.Client.AccountID),
		changed:  make(map[string]bool),
	}

	report := &Report{Outputs: make(map[string]string)}

	for _, name := range order {
		node := g.Node(name)

		op, err := run.applyNode(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("applying %s (%s): %w", name, node.Resource.ResourceType(), err)
		}

		e.Log.WithFields(log.Fields{
			"resource": name,
			"type":     node.Resource.ResourceType(),
			"op":       string(op),
		}).Info("reconciled")

		run.changed[name] = op != OpUnchanged
		report.Actions = append(report.Actions, Action{
			Name: name,
			Type: node.Resource.ResourceType(),
			Op:   op,
		})
	}

	for _, name := range stack.OutputNames() {
		out, _ := stack.GetOutput(name)
		value, err := run.resolver.Resolve(out.Value)
		if err != nil {
			return nil, fmt.Errorf("resolving output %s: %w", name, err)
		}
		report.Outputs[name] = value
	}

	return report, nil
}

// applyRun holds the per-run state an apply accumulates.
type applyRun struct {
	engine   *Engine
	graph    *graph.Graph
	resolver *Resolver
	// changed marks nodes whose reconciliation produced a change, so
	// downstream snapshot decisions can depend on it.
	changed map[string]bool
}

func (run *applyRun) applyNode(ctx context.Context, node *graph.Node) (Op, error) {
	switch res := node.Resource.(type) {
	case secretsmanager.Secret:
		return run.applySecret(ctx, node.Name, res)
	case secretsmanager.SecretVersion:
		return run.applySecretVersion(ctx, node.Name, res)
	case iam.Role:
		return run.applyRole(ctx, node.Name, res)
	case iam.RolePolicy:
		return run.applyRolePolicy(ctx, node.Name, res)
	case iam.RolePolicyAttachment:
		return run.applyRolePolicyAttachment(ctx, node.Name, res)
	case lambda.Function:
		return run.applyFunction(ctx, node.Name, res)
	case lambda.Permission:
		return run.applyPermission(ctx, node.Name, res)
	case apigateway.RestApi:
		return run.applyRestApi(ctx, node.Name, res)
	case apigateway.Resource:
		return run.applyAPIResource(ctx, node.Name, res)
	case apigateway.Method:
		return run.applyMethod(ctx, node.Name, res)
	case apigateway.Integration:
		return run.applyIntegration(ctx, node.Name, res)
	case apigateway.Deployment:
		return run.applyDeployment(ctx, node, res)
	case apigateway.Stage:
		return run.applyStage(ctx, node.Name, res)
	default:
		return "", fmt.Errorf("no reconciler for resource type %s", node.Resource.ResourceType())
	}
}

// upstreamChanged reports whether any direct dependency of node changed in
// this run.
func (run *applyRun) upstreamChanged(node *graph.Node) bool {
	for _, dep := range node.Dependencies() {
		if run.changed[dep] {
			return true
		}
	}
	return false
}
