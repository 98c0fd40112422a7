// Package lambda contains Lambda resource types.
package lambda

// Code references a packaged code artifact by path. The artifact is
// content-addressed: its hash is compared against the deployed payload so a
// changed artifact forces a redeploy.
type Code struct {
	// ZipFile is the path to the deployment package.
	ZipFile string
}

// IsZero returns true if the code reference has not been populated.
func (c Code) IsZero() bool { return c.ZipFile == "" }

// Function is packaged code bound to an execution identity.
type Function struct {
	// FunctionName is the name of the function.
	FunctionName string
	// Description is optional documentation for the function.
	Description string
	// Handler is the code entry point (e.g., "index.handler").
	Handler string
	// Runtime is the runtime identifier (e.g., "nodejs18.x").
	Runtime string
	// Role references the execution role; typically an AttrRef to the
	// role's Arn.
	Role any
	// Code references the deployment package.
	Code Code
	// SourceCodeHash is the base64 SHA-256 of the deployment package.
	// Computed from Code.ZipFile when empty.
	SourceCodeHash string
	// Timeout is the invocation timeout in seconds.
	Timeout int32
	// MemorySize is the memory limit in MB.
	MemorySize int32
	// Environment holds the function's environment variables.
	Environment map[string]string
}

// ResourceType returns the resource type identifier.
func (Function) ResourceType() string { return "AWS::Lambda::Function" }

// Permission is an invoke permission grant. SourceArn must scope the grant
// to exactly the intended caller; a loose constraint allows cross-resource
// invocation.
type Permission struct {
	// FunctionName references the function being granted.
	FunctionName any
	// Action is the granted action, normally lambda:InvokeFunction.
	Action string
	// Principal is the service principal allowed to invoke.
	Principal string
	// SourceArn constrains which resource of the principal may invoke.
	SourceArn any
}

// ResourceType returns the resource type identifier.
func (Permission) ResourceType() string { return "AWS::Lambda::Permission" }

// InvokeAction is the action granted by invoke permissions.
const InvokeAction = "lambda:InvokeFunction"

// Runtime identifiers accepted by the control plane for the runtimes used
// here.
const (
	RuntimeNodejs18  = "nodejs18.x"
	RuntimeNodejs20  = "nodejs20.x"
	RuntimePython312 = "python3.12"
)
