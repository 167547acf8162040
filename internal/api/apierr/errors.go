package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joyverse/joyverse-backend/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeApprovalPending    = "APPROVAL_PENDING"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeTherapistNotFound  = "THERAPIST_NOT_FOUND"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

func (e *httpError) Error() string {
	return e.apiError.Message
}

// specific sentinels take precedence over their kind
var specific = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound, "User not found"},
	{model.ErrTherapistNotFound, http.StatusNotFound, CodeTherapistNotFound, "Therapist not found"},
	{model.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound, "Session not found"},
	{model.ErrUsernameTaken, http.StatusConflict, CodeUsernameTaken, "Username already exists"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password"},
	{model.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired token"},
	{model.ErrApprovalPending, http.StatusForbidden, CodeApprovalPending, "Therapist account is awaiting admin approval"},
	{model.ErrNotPermitted, http.StatusForbidden, CodeForbidden, "Operation not permitted"},
}

var kinds = []struct {
	err    error
	status int
	code   string
	msg    string
}{
	{model.ErrNotFound, http.StatusNotFound, CodeNotFound, "Not found"},
	{model.ErrConflict, http.StatusConflict, CodeConflict, "Conflict"},
	{model.ErrValidation, http.StatusBadRequest, CodeValidation, "Validation failed"},
	{model.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, "Authentication required"},
	{model.ErrForbidden, http.StatusForbidden, CodeForbidden, "Forbidden"},
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// IsInternal reports whether err carries no known kind and is reported
// to clients as a generic 500
func IsInternal(err error) bool {
	return Status(err) == http.StatusInternalServerError
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &httpError{http.StatusBadRequest, APIError{Code: CodeValidation, Message: ve.Error(), Field: ve.Field}}
	}

	for _, m := range specific {
		if errors.Is(err, m.err) {
			return &httpError{m.status, APIError{Code: m.code, Message: m.msg}}
		}
	}
	for _, m := range kinds {
		if errors.Is(err, m.err) {
			return &httpError{m.status, APIError{Code: m.code, Message: m.msg}}
		}
	}

	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewNotFoundError creates a route-level not found error
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Resource not found"}}
}

// NewMethodNotAllowedError creates an error for a known path requested
// with an unsupported method
func NewMethodNotAllowedError() error {
	return &httpError{http.StatusMethodNotAllowed, APIError{Code: CodeMethodNotAllowed, Message: "Method not allowed"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
