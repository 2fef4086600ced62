package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hollandstar/sportteams/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientPermissions = "insufficient_permissions"
	ErrorCodeProfileNotFound         = "profile_not_found"
	ErrorCodeNotFound                = "not_found"
	ErrorCodeRateLimitExceeded       = "rate_limit_exceeded"
	ErrorCodeServerError             = "server_error"
)

// APIError is the error body of every failed request. It implements the
// error interface and is used both by the server (to write HTTP responses)
// and by the client (to represent errors).
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this APIError to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// Is matches on StatusCode and Code so callers can compare against the
// predefined errors with errors.Is.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.StatusCode == e.StatusCode && t.Code == e.Code
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidCredentials covers a wrong email, a wrong password and a
	// rejected refresh token alike.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	// ErrInvalidToken is returned when the access token is missing, invalid, expired or revoked.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "invalid credentials",
	}

	ErrInsufficientPermissions = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInsufficientPermissions,
		Description: "insufficient permissions",
	}

	// ErrProfileNotFound means the token is fine but the account is gone or inactive.
	ErrProfileNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeProfileNotFound,
		Description: "profile not found or inactive",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
