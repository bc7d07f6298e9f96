package hasura

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the error body returned by the engine on non 2xx answers.
type APIError struct {
	Code       string          `json:"code"`
	Message    string          `json:"error"`
	Path       string          `json:"path"`
	Internal   json.RawMessage `json:"internal,omitempty"`
	StatusCode int             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Path != "" && e.Path != "$" {
		return fmt.Sprintf("%s (%s at %s)", e.Message, e.Code, e.Path)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// InternalMessage digs the database error message out of Internal, the
// engine nests it under error.message for run_sql failures.
func (e *APIError) InternalMessage() string {
	if len(e.Internal) == 0 {
		return ""
	}
	var internal struct {
		Error struct {
			Message    string `json:"message"`
			StatusCode string `json:"status_code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.Internal, &internal); err != nil {
		return ""
	}
	return internal.Error.Message
}

// InternalCode is the SQLSTATE style code of a database failure, if any.
func (e *APIError) InternalCode() string {
	if len(e.Internal) == 0 {
		return ""
	}
	var internal struct {
		Error struct {
			StatusCode string `json:"status_code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.Internal, &internal); err != nil {
		return ""
	}
	return internal.Error.StatusCode
}

// ParseAPIError converts a failed response body into an *APIError when
// the body has the engine's error shape, otherwise into a plain error
// carrying the body text.
func ParseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err == nil && (apiErr.Code != "" || apiErr.Message != "") {
		return apiErr
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(statusCode)
	}
	return fmt.Errorf("API request failed with status %d: %s", statusCode, text)
}
