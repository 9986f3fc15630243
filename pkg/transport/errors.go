package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a response outside the 2xx range.
type HTTPError struct {
	StatusCode int
	Status     string

	// Message is the human-readable reason, derived from the error body when
	// the backend sent one.
	Message string

	// Body is the raw response body, possibly truncated.
	Body []byte
}

func (e *HTTPError) Error() string {
	return e.Message
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 64 * 1024

// newHTTPError derives the error message from body, trying in order:
// {"detail": "..."}, {"detail": {"message": "..."}}, {"message": "..."}, then
// the status text.
func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    errorMessage(resp.StatusCode, body),
		Body:       body,
	}
}

func errorMessage(code int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil && detail != "" {
			return detail
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Detail, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP Error: %d", code)
}

// statusError is the bare form used on the streaming and upload paths, where
// the body is not inspected.
func statusError(resp *http.Response) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    fmt.Sprintf("HTTP error! status: %d", resp.StatusCode),
	}
}

func isSuccess(code int) bool {
	return code >= 200 && code <= 299
}

func truncateBody(b []byte) []byte {
	if len(b) > maxErrorBody {
		return b[:maxErrorBody]
	}
	return b
}

func trimBody(b []byte) string {
	return strings.TrimSpace(string(b))
}
