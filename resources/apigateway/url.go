package apigateway

import "fmt"

// InvokeURL derives the public endpoint URL for a deployed stage:
// https://{api-id}.execute-api.{region}.amazonaws.com/{stage}{path}.
// path must start with "/" or be empty.
func InvokeURL(apiID, region, stageName, path string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s%s", apiID, region, stageName, path)
}

// IsValidHTTPMethod reports whether verb is an HTTP method the control plane
// accepts, including the ANY catch-all.
func IsValidHTTPMethod(verb string) bool {
	switch verb {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "ANY":
		return true
	}
	return false
}

// IsValidAuthorizationType reports whether auth is an accepted authorization
// mode.
func IsValidAuthorizationType(auth string) bool {
	switch auth {
	case AuthorizationNone, AuthorizationIAM, AuthorizationCustom, AuthorizationCognitoUserPools:
		return true
	}
	return false
}

// IsValidIntegrationType reports whether typ is an accepted integration
// contract type.
func IsValidIntegrationType(typ string) bool {
	switch typ {
	case IntegrationAWS, IntegrationAWSProxy, IntegrationHTTP, IntegrationHTTPProxy, IntegrationMock:
		return true
	}
	return false
}
