package errors

import (
	"errors"
)

var (
	// Common errors
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrForbidden      = errors.New("operation forbidden")

	// Role errors
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrAudienceNotFound  = errors.New("audience reference not found")

	// Collaborator errors
	ErrIdpNotFound       = errors.New("identity provider not found")
	ErrIdpGroupNotFound  = errors.New("identity provider group not found")
	ErrPermissionUnknown = errors.New("permission not found in the allowed scopes")
)

// IsClientError reports whether err is the caller's fault.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsServerError reports whether err is an infrastructure failure.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}

// IsDomainError reports whether err is a business-rule failure outside
// the client/server split.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// IsNotFound reports whether err represents a missing role or resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrRoleNotFound) {
		return true
	}
	var ce *ClientError
	return errors.As(err, &ce) && ce.Code == CodeRoleNotFound
}

// IsConflict reports whether err represents a uniqueness conflict.
func IsConflict(err error) bool {
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrRoleAlreadyExists) {
		return true
	}
	var ce *ClientError
	return errors.As(err, &ce) && ce.Code == CodeRoleAlreadyExists
}

// IsForbidden reports whether err represents a protected-role violation.
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) {
		return true
	}
	var ce *ClientError
	return errors.As(err, &ce) && ce.Code == CodeOperationForbidden
}

// Code extracts the stable error code from err, or CodeUnexpectedServer
// when err carries none.
func Code(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnexpectedServer
}
