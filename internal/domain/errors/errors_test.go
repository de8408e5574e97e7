package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientErrorCarriesCode(t *testing.T) {
	err := NewClientError(CodeRoleNotFound, "role missing")
	assert.True(t, IsClientError(err))
	assert.False(t, IsServerError(err))
	assert.Equal(t, CodeRoleNotFound, Code(err))
	assert.Equal(t, "role missing", err.Error())
}

func TestServerErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewServerError("failed to list roles", cause)
	assert.True(t, IsServerError(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, CodeUnexpectedServer, Code(err))
	assert.Equal(t, "failed to list roles: connection refused", err.Error())
}

func TestDomainErrorCode(t *testing.T) {
	err := NewDomainError(CodeIdpNotFound, "idp missing")
	assert.True(t, IsDomainError(err))
	assert.False(t, IsClientError(err))
	assert.Equal(t, CodeIdpNotFound, Code(err))
}

func TestPredicatesMatchWrappedErrors(t *testing.T) {
	notFound := fmt.Errorf("loading role: %w", NewClientError(CodeRoleNotFound, "gone"))
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsConflict(notFound))

	conflict := fmt.Errorf("creating role: %w", NewClientError(CodeRoleAlreadyExists, "dup"))
	assert.True(t, IsConflict(conflict))

	forbidden := fmt.Errorf("deleting role: %w", NewClientError(CodeOperationForbidden, "no"))
	assert.True(t, IsForbidden(forbidden))
}

func TestPredicatesMatchSentinels(t *testing.T) {
	assert.True(t, IsNotFound(ErrRoleNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", ErrNotFound)))
	assert.True(t, IsConflict(ErrRoleAlreadyExists))
	assert.True(t, IsForbidden(ErrForbidden))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestCodeFallsBackToServerCode(t *testing.T) {
	assert.Equal(t, CodeUnexpectedServer, Code(errors.New("boom")))
	assert.Equal(t, CodeUnexpectedServer, Code(NewServerError("x", ErrInternal)))
}
