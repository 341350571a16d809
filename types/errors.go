package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeAuthorization     = "AUTHORIZATION_ERROR"
	CodeUnprocessable     = "UNPROCESSABLE"
	CodeProtocol          = "PROTOCOL_ERROR"
	CodeGrantNotFinalized = "GRANT_NOT_FINALIZED"
)

// Upstream preserves the status, code and description of a counterparty
// server failure wrapped by a protocol error.
type Upstream struct {
	Status      int    `json:"status,omitempty"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Error is the domain error surfaced unchanged to the HTTP layer. Status is
// the HTTP status the layer should respond with.
type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`

	// Step and Role attach the offending flow step and participant when a
	// payment flow fails partway.
	Step string `json:"step,omitempty"`
	Role Role   `json:"role,omitempty"`

	Upstream *Upstream `json:"upstream,omitempty"`

	err error
}

func (e *Error) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("%s (step %s, role %s): %s", e.Code, e.Step, e.Role, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether the caller may re-invoke the failed operation.
// Only a not-yet-finalized grant continuation is; nothing is retried
// internally.
func (e *Error) Retryable() bool {
	return e.Code == CodeGrantNotFinalized
}

// NewValidationError reports a malformed charge, amount or identifier.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a participant lookup miss.
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewAuthorizationError reports a secret mismatch. Distinct from validation
// errors: callers must not conflate "bad request" with "wrong secret".
func NewAuthorizationError(format string, args ...any) *Error {
	return &Error{Code: CodeAuthorization, Status: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// NewUnprocessableError reports missing credentials or asset metadata.
func NewUnprocessableError(format string, args ...any) *Error {
	return &Error{Code: CodeUnprocessable, Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf(format, args...)}
}

// NewProtocolError wraps an upstream grant or resource-server failure.
func NewProtocolError(err error, format string, args ...any) *Error {
	return &Error{Code: CodeProtocol, Status: http.StatusBadGateway, Message: fmt.Sprintf(format, args...), err: err}
}

// NewGrantNotFinalizedError reports a grant continuation attempted before
// the human completed consent, or against a lapsed grant.
func NewGrantNotFinalizedError(format string, args ...any) *Error {
	return &Error{Code: CodeGrantNotFinalized, Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a domain *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err is a domain error with the given code.
func IsCode(err error, code string) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// ErrorResponse is the envelope the HTTP layer renders for a failed call.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// ToResponse converts any error into the wire envelope plus its HTTP status.
func ToResponse(err error) (ErrorResponse, int) {
	if e, ok := AsError(err); ok {
		return ErrorResponse{Error: true, Message: e.Message}, e.Status
	}
	return ErrorResponse{Error: true, Message: err.Error()}, http.StatusInternalServerError
}
