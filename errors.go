// ABOUTME: Error taxonomy for the Dust client: API, parse, stream, and chat errors.
// ABOUTME: Maps HTTP status codes to sentinel kinds and parses error bodies defensively.

package dust

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConfiguration marks invalid or incomplete local configuration. It is
// raised synchronously, before any network I/O, and never retried.
var ErrConfiguration = errors.New("configuration error")

// ErrUnsupported marks operations the public Dust API does not expose.
var ErrUnsupported = errors.New("operation not supported by the public Dust API")

// Status kind sentinels. An *APIError unwraps to the sentinel matching its
// status code, so errors.Is(err, dust.ErrNotFound) works as expected.
// Statuses without a sentinel (e.g. 418) produce a generic *APIError that
// matches none of these.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
)

// errorKindForStatus maps an HTTP status code to its sentinel kind.
// Any 5xx not otherwise enumerated maps to ErrServer; anything else
// unmapped returns nil (the generic kind).
func errorKindForStatus(status int) error {
	switch status {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 429:
		return ErrRateLimited
	}
	if status >= 500 && status <= 599 {
		return ErrServer
	}
	return nil
}

// APIError is a non-2xx response from the Dust API.
//
// Code is the Dust-specific error code when the body carried one. Details
// preserves the raw error payload for diagnostics (not necessarily JSON when
// the server returned plain text).
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    json.RawMessage

	kind error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("dust: API error %d", e.StatusCode)
	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap exposes the status kind sentinel, or nil for unmapped statuses.
func (e *APIError) Unwrap() error {
	return e.kind
}

// parseAPIError builds an *APIError from a non-2xx response body.
//
// Dust error bodies come in a few shapes:
//
//	{"error": {"code": "...", "message": "..."}}     nested, code or type,
//	                                                 message or detail or error
//	{"code": "...", "message": "..."}                flat, code or error,
//	                                                 message or detail or
//	                                                 error_description
//	plain text                                       anything non-JSON
//
// The status code, best-effort code/message, and the raw payload are always
// preserved.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Message:    "unknown error",
		Details:    json.RawMessage(body),
		kind:       errorKindForStatus(status),
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		if len(body) > 0 {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	var nested map[string]json.RawMessage
	if raw, ok := payload["error"]; ok && json.Unmarshal(raw, &nested) == nil && nested != nil {
		apiErr.Code = firstString(nested, "code", "type")
		if msg := firstString(nested, "message", "detail", "error"); msg != "" {
			apiErr.Message = msg
		}
		return apiErr
	}

	apiErr.Code = firstString(payload, "code", "error")
	if msg := firstString(payload, "message", "detail", "error_description"); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

// firstString returns the first key in keys that holds a JSON string.
func firstString(m map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := m[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

// ParseError is a response body that did not match the expected shape.
// Raw preserves the offending payload for diagnostics.
type ParseError struct {
	Message string
	Raw     json.RawMessage
}

func (e *ParseError) Error() string {
	return "dust: " + e.Message
}

// StreamError is a failure opening or reading an event stream: a non-2xx
// status on the stream request, or a network fault mid-iteration. Malformed
// individual frames are not errors; the decoder drops those silently.
type StreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dust: streaming error: status=%d body=%q", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("dust: streaming failure: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// AgentError is an explicit agent_error event observed for the correlated
// reply during a chat send. It carries the service-provided error text.
type AgentError struct {
	Message string
}

func (e *AgentError) Error() string {
	return "dust: agent error: " + e.Message
}
