// Package httputil centralizes JSON response writing and domain error
// translation so every handler produces the same error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "verigate/pkg/domain-errors"
)

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeUnauthorized:        http.StatusUnauthorized,
	dErrors.CodeAccountInactive:     http.StatusForbidden,
	dErrors.CodeInsufficientRole:    http.StatusForbidden,
	dErrors.CodeOwnershipRequired:   http.StatusForbidden,
	dErrors.CodeRateLimited:         http.StatusTooManyRequests,
	dErrors.CodeInvalidInput:        http.StatusBadRequest,
	dErrors.CodeBadRequest:          http.StatusBadRequest,
	dErrors.CodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	dErrors.CodeCaseAlreadyOpen:     http.StatusConflict,
	dErrors.CodeCaseAlreadyApproved: http.StatusConflict,
	dErrors.CodeInvalidTransition:   http.StatusConflict,
	dErrors.CodeConflict:            http.StatusConflict,
	dErrors.CodeNotFound:            http.StatusNotFound,
	dErrors.CodeUnavailable:         http.StatusServiceUnavailable,
	dErrors.CodeInternal:            http.StatusInternalServerError,
}

// ToHTTPStatus resolves the HTTP status for a domain error code.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the standard error envelope. Internal errors
// omit the description so store failures never leak details to callers; all
// other codes include it plus any metadata the error carries (retry_after,
// required_role, account_status).
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := ToHTTPStatus(code)

	body := map[string]string{"error": string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) && code != dErrors.CodeInternal {
		if de.Message != "" {
			body["error_description"] = de.Message
		}
		for k, v := range de.Meta {
			body[k] = v
		}
	}

	if code == dErrors.CodeRateLimited || code == dErrors.CodeUnavailable {
		if retry, ok := body["retry_after"]; ok {
			w.Header().Set("Retry-After", retry)
		}
	}

	WriteJSON(w, status, body)
}

// Decode parses the request body into T, returning a coded error on failure
// so handlers can pass it straight to WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return v, nil
}
