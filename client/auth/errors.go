package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ortelius/pdvd-auth/model"
)

// maxErrorBody caps how much of a failed response is kept on the error
const maxErrorBody = 4096

// HTTPError is returned for any non-2xx response. The client does not
// interpret the status; callers decide what 401 or 422 mean for them.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Message    string // server supplied {"error": ...} text, if any
	Body       []byte
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsValidationError reports whether err is a 422 response
func IsValidationError(err error) bool {
	return StatusCode(err) == http.StatusUnprocessableEntity
}

func newHTTPError(method, path string, resp *http.Response, body []byte) *HTTPError {
	httpErr := &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
	if httpErr.Status == "" {
		httpErr.Status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var errBody model.ErrorResponse
	if err := json.Unmarshal(body, &errBody); err == nil {
		httpErr.Message = errBody.Error
	} else if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		httpErr.Message = text
	}
	return httpErr
}
