package errors

import "fmt"

// Base application error with code.
type AppError struct {
	Err  error
	Msg  string
	Code string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AppError) Unwrap() error { return e.Err }

// Stable error codes. ClientError codes are fit for direct display to
// the caller; the server code is deliberately generic, detail goes to
// the log.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidLimit        = "INVALID_LIMIT"
	CodeInvalidOffset       = "INVALID_OFFSET"
	CodeSortingNotSupported = "SORTING_NOT_SUPPORTED"
	CodeRoleAlreadyExists   = "ROLE_ALREADY_EXISTS"
	CodeRoleNotFound        = "ROLE_NOT_FOUND"
	CodeOperationForbidden  = "OPERATION_FORBIDDEN"
	CodeUnexpectedServer    = "UNEXPECTED_SERVER_ERROR"
	CodeIdpNotFound         = "IDP_NOT_FOUND"
	CodeIdpGroupNotFound    = "IDP_GROUP_NOT_FOUND"
	CodePermissionNotFound  = "PERMISSION_NOT_FOUND"
)

// ClientError is the caller's fault and user-correctable.
type ClientError struct{ AppError }

// ServerError is an infrastructure or unexpected failure wrapping the
// underlying cause.
type ServerError struct{ AppError }

// DomainError is a business-rule failure that is neither bad client
// input nor an infrastructure fault, e.g. an unknown identity provider
// during group validation.
type DomainError struct{ AppError }

func NewClientError(code, msg string) *ClientError {
	return &ClientError{AppError{Msg: msg, Code: code}}
}

func NewClientErrorf(code, format string, args ...interface{}) *ClientError {
	return &ClientError{AppError{Msg: fmt.Sprintf(format, args...), Code: code}}
}

func NewServerError(msg string, err error) *ServerError {
	return &ServerError{AppError{Err: err, Msg: msg, Code: CodeUnexpectedServer}}
}

func NewDomainError(code, msg string) *DomainError {
	return &DomainError{AppError{Msg: msg, Code: code}}
}
