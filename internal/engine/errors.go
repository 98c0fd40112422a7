package engine

import (
	"errors"

	"github.com/aws/smithy-go"
)

// errorCode extracts the service error code from an AWS SDK error, or ""
// for non-API errors.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isAlreadyExists reports whether err means the resource already exists.
// Create calls treat this as convergence, not failure.
func isAlreadyExists(err error) bool {
	switch errorCode(err) {
	case "EntityAlreadyExists", "ResourceExistsException", "ResourceConflictException", "ConflictException":
		return true
	}
	return false
}

// isNotFound reports whether err means the resource does not exist.
func isNotFound(err error) bool {
	switch errorCode(err) {
	case "NoSuchEntity", "ResourceNotFoundException", "NotFoundException":
		return true
	}
	return false
}
