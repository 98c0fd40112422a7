package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "boom"}
}

func TestIsAlreadyExists(t *testing.T) {
	assert.True(t, isAlreadyExists(apiError("EntityAlreadyExists")))
	assert.True(t, isAlreadyExists(apiError("ResourceExistsException")))
	assert.True(t, isAlreadyExists(apiError("ResourceConflictException")))
	assert.True(t, isAlreadyExists(apiError("ConflictException")))

	assert.False(t, isAlreadyExists(apiError("AccessDenied")))
	assert.False(t, isAlreadyExists(errors.New("plain error")))
	assert.False(t, isAlreadyExists(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(apiError("NoSuchEntity")))
	assert.True(t, isNotFound(apiError("ResourceNotFoundException")))
	assert.True(t, isNotFound(apiError("NotFoundException")))

	assert.False(t, isNotFound(apiError("AccessDenied")))
	assert.False(t, isNotFound(nil))
}

func TestErrorCodeUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("GetRole failed: %w", apiError("NoSuchEntity"))
	assert.True(t, isNotFound(wrapped))
}
