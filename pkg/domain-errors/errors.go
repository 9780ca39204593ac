// Package domainerrors defines coded errors that cross component boundaries.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into these coded errors so transport can map codes to HTTP statuses
// without inspecting error strings. Codes are machine-readable and stable:
// clients branch on them.
package domainerrors

import "errors"

// Code is a machine-readable error code surfaced to callers.
type Code string

const (
	// Authentication.
	CodeUnauthorized    Code = "unauthorized"     // invalid, malformed or expired credential
	CodeAccountInactive Code = "account_inactive" // principal suspended or locked

	// Authorization.
	CodeInsufficientRole  Code = "insufficient_role"
	CodeOwnershipRequired Code = "ownership_required"
	CodeRateLimited       Code = "rate_limit_exceeded"

	// Validation.
	CodeInvalidInput    Code = "invalid_input"
	CodeBadRequest      Code = "bad_request"
	CodePayloadTooLarge Code = "payload_too_large"

	// State conflicts.
	CodeCaseAlreadyOpen     Code = "case_already_open"
	CodeCaseAlreadyApproved Code = "case_already_approved"
	CodeInvalidTransition   Code = "invalid_transition"
	CodeConflict            Code = "conflict"

	// Lookup and infrastructure.
	CodeNotFound    Code = "not_found"
	CodeUnavailable Code = "service_unavailable"
	CodeInternal    Code = "internal_error"
)

// Error carries a code, a caller-facing message, and optional metadata used
// by transport to enrich the response (retry_after, required_role, ...).
// Metadata holds only the minimum detail a caller needs to self-correct,
// never internal state.
type Error struct {
	Code    Code
	Message string
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMeta attaches a metadata key to the error and returns it for chaining.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string, 2)
	}
	e.Meta[key] = value
	return e
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks through transport untyped.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
