// Package apigateway contains API Gateway REST API resource types.
package apigateway

// RestApi is the root of a REST API resource tree.
type RestApi struct {
	// Name is the API name.
	Name string
	// Description is optional documentation for the API.
	Description string
}

// ResourceType returns the resource type identifier.
func (RestApi) ResourceType() string { return "AWS::ApiGateway::RestApi" }

// Resource is one path segment in the API resource tree. Every node has
// exactly one parent; the root is referenced via the RestApi's
// RootResourceId attribute.
type Resource struct {
	// RestApi references the owning RestApi.
	RestApi any
	// Parent references the parent resource (or the API root).
	Parent any
	// PathPart is this node's path segment (no slashes).
	PathPart string
}

// ResourceType returns the resource type identifier.
func (Resource) ResourceType() string { return "AWS::ApiGateway::Resource" }

// Method is an authorization rule for one HTTP verb on one resource.
type Method struct {
	// RestApi references the owning RestApi.
	RestApi any
	// Resource references the path resource the method is declared on.
	Resource any
	// HttpMethod is the HTTP verb (GET, POST, ...).
	HttpMethod string
	// AuthorizationType gates caller identity requirements.
	AuthorizationType string
}

// ResourceType returns the resource type identifier.
func (Method) ResourceType() string { return "AWS::ApiGateway::Method" }

// Integration binds a method to its backing function.
type Integration struct {
	// RestApi references the owning RestApi.
	RestApi any
	// Resource references the path resource.
	Resource any
	// Method references the Method being integrated.
	Method any
	// Type is the invocation contract type (normally AWS_PROXY).
	Type string
	// IntegrationHttpMethod is the verb used to call the backend; Lambda
	// invocations are always POST.
	IntegrationHttpMethod string
	// Uri is the backend invocation URI; typically a Join over the
	// function's ARN.
	Uri any
}

// ResourceType returns the resource type identifier.
func (Integration) ResourceType() string { return "AWS::ApiGateway::Integration" }

// Deployment is an immutable snapshot of the resource/method/integration
// graph. It must depend on every Method and Integration of its API:
// otherwise a change appears applied while the live stage still serves the
// old snapshot.
type Deployment struct {
	// RestApi references the owning RestApi.
	RestApi any
	// Triggers lists the nodes whose changes require a new snapshot;
	// normally every Method and Integration of the API.
	Triggers []any
}

// ResourceType returns the resource type identifier.
func (Deployment) ResourceType() string { return "AWS::ApiGateway::Deployment" }

// Stage is a named, mutable pointer to a Deployment. Repointing a stage to a
// new snapshot does not recreate the RestApi.
type Stage struct {
	// RestApi references the owning RestApi.
	RestApi any
	// Deployment references the snapshot the stage serves.
	Deployment any
	// StageName is the stage name (e.g., "dev").
	StageName string
}

// ResourceType returns the resource type identifier.
func (Stage) ResourceType() string { return "AWS::ApiGateway::Stage" }

// Authorization types accepted by the control plane.
const (
	AuthorizationNone             = "NONE"
	AuthorizationIAM              = "AWS_IAM"
	AuthorizationCustom           = "CUSTOM"
	AuthorizationCognitoUserPools = "COGNITO_USER_POOLS"
)

// Integration types accepted by the control plane.
const (
	IntegrationAWS       = "AWS"
	IntegrationAWSProxy  = "AWS_PROXY"
	IntegrationHTTP      = "HTTP"
	IntegrationHTTPProxy = "HTTP_PROXY"
	IntegrationMock      = "MOCK"
)

// ServicePrincipal is the principal API Gateway uses when invoking backends.
const ServicePrincipal = "apigateway.amazonaws.com"
