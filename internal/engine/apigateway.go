package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsapi "github.com/aws/aws-sdk-go-v2/service/apigateway"
	apitypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"

	weft "github.com/weftline/weft"
	"github.com/weftline/weft/internal/graph"
	"github.com/weftline/weft/resources/apigateway"
)

// applyRestApi ensures the REST API exists, and records its generated ID and
// root resource ID for downstream references.
func (run *applyRun) applyRestApi(ctx context.Context, name string, api apigateway.RestApi) (Op, error) {
	client := run.engine.Client.APIGateway

	op := OpUnchanged
	apiID, err := run.findRestApiByName(ctx, api.Name)
	if err != nil {
		return "", err
	}

	if apiID == "" {
		out, cerr := client.CreateRestApi(ctx, &awsapi.CreateRestApiInput{
			Name:        aws.String(api.Name),
			Description: optionalString(api.Description),
		})
		if cerr != nil {
			return "", fmt.Errorf("CreateRestApi failed: %w", cerr)
		}
		apiID = aws.ToString(out.Id)
		op = OpCreated
	}

	rootID, err := run.findResource(ctx, apiID, func(r apitypes.Resource) bool {
		return aws.ToString(r.Path) == "/"
	})
	if err != nil {
		return "", err
	}
	if rootID == "" {
		return "", fmt.Errorf("root resource not found for API %s", apiID)
	}

	run.resolver.SetIdentity(name, apiID)
	run.resolver.SetAttr(name, "RootResourceId", rootID)
	return op, nil
}

// applyAPIResource ensures one path segment exists under its parent.
func (run *applyRun) applyAPIResource(ctx context.Context, name string, res apigateway.Resource) (Op, error) {
	client := run.engine.Client.APIGateway

	apiID, err := run.resolver.Resolve(res.RestApi)
	if err != nil {
		return "", err
	}
	parentID, err := run.resolver.Resolve(res.Parent)
	if err != nil {
		return "", err
	}

	existing, err := run.findResource(ctx, apiID, func(r apitypes.Resource) bool {
		return aws.ToString(r.ParentId) == parentID && aws.ToString(r.PathPart) == res.PathPart
	})
	if err != nil {
		return "", err
	}
	if existing != "" {
		run.resolver.SetIdentity(name, existing)
		return OpUnchanged, nil
	}

	out, cerr := client.CreateResource(ctx, &awsapi.CreateResourceInput{
		RestApiId: aws.String(apiID),
		ParentId:  aws.String(parentID),
		PathPart:  aws.String(res.PathPart),
	})
	if cerr != nil {
		return "", fmt.Errorf("CreateResource failed: %w", cerr)
	}

	run.resolver.SetIdentity(name, aws.ToString(out.Id))
	return OpCreated, nil
}

// applyMethod ensures the method exists with the declared authorization
// mode.
func (run *applyRun) applyMethod(ctx context.Context, name string, m apigateway.Method) (Op, error) {
	client := run.engine.Client.APIGateway

	apiID, err := run.resolver.Resolve(m.RestApi)
	if err != nil {
		return "", err
	}
	resourceID, err := run.resolver.Resolve(m.Resource)
	if err != nil {
		return "", err
	}

	run.resolver.SetIdentity(name, m.HttpMethod)

	got, gerr := client.GetMethod(ctx, &awsapi.GetMethodInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(m.HttpMethod),
	})

	op := OpCreated
	switch {
	case gerr == nil:
		if aws.ToString(got.AuthorizationType) == m.AuthorizationType {
			return OpUnchanged, nil
		}
		op = OpUpdated
	case !isNotFound(gerr):
		return "", fmt.Errorf("GetMethod failed: %w", gerr)
	}

	_, perr := client.PutMethod(ctx, &awsapi.PutMethodInput{
		RestApiId:         aws.String(apiID),
		ResourceId:        aws.String(resourceID),
		HttpMethod:        aws.String(m.HttpMethod),
		AuthorizationType: aws.String(m.AuthorizationType),
	})
	if perr != nil && !isAlreadyExists(perr) {
		return "", fmt.Errorf("PutMethod failed: %w", perr)
	}
	return op, nil
}

// applyIntegration ensures the method is bound to its backend. Lambda
// integrations always call the backend with POST regardless of the method's
// own verb.
func (run *applyRun) applyIntegration(ctx context.Context, name string, integ apigateway.Integration) (Op, error) {
	client := run.engine.Client.APIGateway

	apiID, err := run.resolver.Resolve(integ.RestApi)
	if err != nil {
		return "", err
	}
	resourceID, err := run.resolver.Resolve(integ.Resource)
	if err != nil {
		return "", err
	}

	verb, err := run.methodVerb(integ.Method)
	if err != nil {
		return "", err
	}

	uri, err := run.resolver.Resolve(integ.Uri)
	if err != nil {
		return "", err
	}

	run.resolver.SetIdentity(name, verb)

	got, gerr := client.GetIntegration(ctx, &awsapi.GetIntegrationInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(verb),
	})

	op := OpCreated
	switch {
	case gerr == nil:
		if string(got.Type) == integ.Type && aws.ToString(got.Uri) == uri {
			return OpUnchanged, nil
		}
		op = OpUpdated
	case !isNotFound(gerr):
		return "", fmt.Errorf("GetIntegration failed: %w", gerr)
	}

	integrationHTTPMethod := integ.IntegrationHttpMethod
	if integrationHTTPMethod == "" {
		integrationHTTPMethod = "POST"
	}

	_, perr := client.PutIntegration(ctx, &awsapi.PutIntegrationInput{
		RestApiId:             aws.String(apiID),
		ResourceId:            aws.String(resourceID),
		HttpMethod:            aws.String(verb),
		Type:                  apitypes.IntegrationType(integ.Type),
		IntegrationHttpMethod: aws.String(integrationHTTPMethod),
		Uri:                   aws.String(uri),
	})
	if perr != nil && !isAlreadyExists(perr) {
		return "", fmt.Errorf("PutIntegration failed: %w", perr)
	}

	if _, err := client.PutMethodResponse(ctx, &awsapi.PutMethodResponseInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(verb),
		StatusCode: aws.String("200"),
	}); err != nil && !isAlreadyExists(err) {
		return "", fmt.Errorf("PutMethodResponse failed: %w", err)
	}

	if _, err := client.PutIntegrationResponse(ctx, &awsapi.PutIntegrationResponseInput{
		RestApiId:  aws.String(apiID),
		ResourceId: aws.String(resourceID),
		HttpMethod: aws.String(verb),
		StatusCode: aws.String("200"),
	}); err != nil && !isAlreadyExists(err) {
		return "", fmt.Errorf("PutIntegrationResponse failed: %w", err)
	}

	return op, nil
}

// applyDeployment snapshots the API when any upstream node changed in this
// run, or when no snapshot exists yet. Reusing the latest live snapshot
// otherwise keeps re-applies change-free.
func (run *applyRun) applyDeployment(ctx context.Context, node *graph.Node, dep apigateway.Deployment) (Op, error) {
	client := run.engine.Client.APIGateway

	apiID, err := run.resolver.Resolve(dep.RestApi)
	if err != nil {
		return "", err
	}

	if !run.upstreamChanged(node) {
		latest, err := run.latestDeployment(ctx, apiID)
		if err != nil {
			return "", err
		}
		if latest != "" {
			run.resolver.SetIdentity(node.Name, latest)
			return OpUnchanged, nil
		}
	}

	out, cerr := client.CreateDeployment(ctx, &awsapi.CreateDeploymentInput{
		RestApiId:   aws.String(apiID),
		Description: aws.String("weft apply"),
	})
	if cerr != nil {
		return "", fmt.Errorf("CreateDeployment failed: %w", cerr)
	}

	run.resolver.SetIdentity(node.Name, aws.ToString(out.Id))
	return OpCreated, nil
}

// applyStage ensures the stage exists and points at the declared snapshot.
// Repointing patches the stage; the API itself is untouched.
func (run *applyRun) applyStage(ctx context.Context, name string, st apigateway.Stage) (Op, error) {
	client := run.engine.Client.APIGateway

	apiID, err := run.resolver.Resolve(st.RestApi)
	if err != nil {
		return "", err
	}
	deploymentID, err := run.resolver.Resolve(st.Deployment)
	if err != nil {
		return "", err
	}

	run.resolver.SetIdentity(name, st.StageName)
	run.resolver.SetAttr(name, "InvokeUrl",
		apigateway.InvokeURL(apiID, run.engine.Client.Region, st.StageName, ""))

	got, gerr := client.GetStage(ctx, &awsapi.GetStageInput{
		RestApiId: aws.String(apiID),
		StageName: aws.String(st.StageName),
	})

	switch {
	case gerr == nil:
		if aws.ToString(got.DeploymentId) == deploymentID {
			return OpUnchanged, nil
		}
		_, uerr := client.UpdateStage(ctx, &awsapi.UpdateStageInput{
			RestApiId: aws.String(apiID),
			StageName: aws.String(st.StageName),
			PatchOperations: []apitypes.PatchOperation{{
				Op:    apitypes.OpReplace,
				Path:  aws.String("/deploymentId"),
				Value: aws.String(deploymentID),
			}},
		})
		if uerr != nil {
			return "", fmt.Errorf("UpdateStage failed: %w", uerr)
		}
		return OpUpdated, nil

	case !isNotFound(gerr):
		return "", fmt.Errorf("GetStage failed: %w", gerr)
	}

	_, cerr := client.CreateStage(ctx, &awsapi.CreateStageInput{
		RestApiId:    aws.String(apiID),
		StageName:    aws.String(st.StageName),
		DeploymentId: aws.String(deploymentID),
	})
	if cerr != nil {
		return "", fmt.Errorf("CreateStage failed: %w", cerr)
	}
	return OpCreated, nil
}

// findRestApiByName pages through the account's REST APIs looking for an
// exact name match.
func (run *applyRun) findRestApiByName(ctx context.Context, apiName string) (string, error) {
	client := run.engine.Client.APIGateway

	var position *string
	for {
		out, err := client.GetRestApis(ctx, &awsapi.GetRestApisInput{Position: position})
		if err != nil {
			return "", fmt.Errorf("GetRestApis failed: %w", err)
		}
		for _, item := range out.Items {
			if aws.ToString(item.Name) == apiName {
				return aws.ToString(item.Id), nil
			}
		}
		if out.Position == nil {
			return "", nil
		}
		position = out.Position
	}
}

// findResource returns the ID of the first API resource matching the
// predicate, or "".
func (run *applyRun) findResource(ctx context.Context, apiID string, match func(apitypes.Resource) bool) (string, error) {
	client := run.engine.Client.APIGateway

	var position *string
	for {
		out, err := client.GetResources(ctx, &awsapi.GetResourcesInput{
			RestApiId: aws.String(apiID),
			Position:  position,
		})
		if err != nil {
			return "", fmt.Errorf("GetResources failed: %w", err)
		}
		for _, item := range out.Items {
			if match(item) {
				return aws.ToString(item.Id), nil
			}
		}
		if out.Position == nil {
			return "", nil
		}
		position = out.Position
	}
}

// latestDeployment returns the most recent deployment ID, or "" when the API
// has none.
func (run *applyRun) latestDeployment(ctx context.Context, apiID string) (string, error) {
	out, err := run.engine.Client.APIGateway.GetDeployments(ctx, &awsapi.GetDeploymentsInput{
		RestApiId: aws.String(apiID),
	})
	if err != nil {
		return "", fmt.Errorf("GetDeployments failed: %w", err)
	}

	if len(out.Items) == 0 {
		return "", nil
	}

	best := out.Items[0]
	for _, item := range out.Items[1:] {
		if item.CreatedDate != nil && (best.CreatedDate == nil || item.CreatedDate.After(*best.CreatedDate)) {
			best = item
		}
	}
	return aws.ToString(best.Id), nil
}

// methodVerb resolves an Integration's Method reference to its HTTP verb.
func (run *applyRun) methodVerb(ref any) (string, error) {
	var name string
	switch v := ref.(type) {
	case weft.Ref:
		name = v.Name
	case weft.AttrRef:
		name = v.Resource
	default:
		return "", fmt.Errorf("integration method must reference a declared method")
	}

	node := run.graph.Node(name)
	if node == nil {
		return "", fmt.Errorf("integration references undeclared method %q", name)
	}
	m, ok := node.Resource.(apigateway.Method)
	if !ok {
		return "", fmt.Errorf("integration references %q, which is not a method", name)
	}
	return m.HttpMethod, nil
}
