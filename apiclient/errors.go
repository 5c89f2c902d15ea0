package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork means no response was received: dial failure, timeout or
	// cancellation.
	ErrNetwork = errors.New("hospital API unreachable")

	// ErrDecode means a response arrived but its body was not understood.
	ErrDecode = errors.New("unexpected response from hospital API")
)

// APIError is a non-2xx response from the hospital API.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hospital API returned %d", e.Status)
	}
	return fmt.Sprintf("hospital API returned %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the hospital API.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// StatusOf returns the HTTP status of an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// UserMessage returns text suitable for showing to the user: the API's own
// message when there is one, a generic one otherwise.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "The hospital service is unreachable. Please try again."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &apiErr):
		return fmt.Sprintf("The request failed (%d).", apiErr.Status)
	default:
		return "Something went wrong. Please try again."
	}
}

// newAPIError reads message and code from a JSON error body, accepting
// both {"message": ...} and {"error": ...}.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Code    any    `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		default:
			apiErr.Message = payload.Detail
		}
		if payload.Code != nil {
			apiErr.Code = fmt.Sprint(payload.Code)
		}
	}

	if apiErr.Message == "" {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
			apiErr.Message = text
		}
	}
	return apiErr
}
