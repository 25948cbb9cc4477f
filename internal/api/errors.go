package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// User-facing messages for errors that carry no server message.
const (
	MsgNetwork = "Unable to reach the server. Check your connection and try again."
	MsgDecode  = "The server returned a response that could not be read."
	MsgGeneric = "The request failed. Try again later."
)

// Common client errors.
var (
	ErrNoBaseURL       = errors.New("api base URL is not configured")
	ErrIncompatible    = errors.New("server version is not supported by this client")
	ErrEmptyCredential = errors.New("username and password are required")
)

// SubError is one field-level problem in the server error envelope.
type SubError struct {
	Object        string `json:"object,omitempty"`
	Field         string `json:"field,omitempty"`
	RejectedValue any    `json:"rejectedValue,omitempty"`
	Message       string `json:"message"`
}

// APIError is a non-2xx response. When the body is the server's error
// envelope its fields are populated; otherwise only the status is known.
type APIError struct {
	Status       int
	StatusText   string
	Timestamp    string
	Message      string
	DebugMessage string
	SubErrors    []SubError

	Method string
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Detail folds sub-errors into one line each, "field: message".
func (e *APIError) Detail() []string {
	lines := make([]string, 0, len(e.SubErrors))
	for _, s := range e.SubErrors {
		if s.Field != "" {
			lines = append(lines, s.Field+": "+s.Message)
		} else {
			lines = append(lines, s.Message)
		}
	}
	return lines
}

// IsClientError reports a 4xx status.
func (e *APIError) IsClientError() bool { return e.Status >= 400 && e.Status < 500 }

// IsServerError reports a 5xx status.
func (e *APIError) IsServerError() bool { return e.Status >= 500 }

// NetworkError means no HTTP response was received.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means a 2xx response body could not be parsed.
type DecodeError struct {
	Path string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable classifies err for the retry policy: network failures, 5xx
// responses and unreadable 2xx bodies are retried; 4xx responses and
// cancellation are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// UserMessage returns a short message for err suitable for display. Server
// messages are shown verbatim with sub-errors on following lines.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = MsgGeneric
		}
		if detail := apiErr.Detail(); len(detail) > 0 {
			msg += "\n- " + strings.Join(detail, "\n- ")
		}
		return msg
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return MsgNetwork
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return MsgDecode
	}
	if errors.Is(err, ErrNoBaseURL) || errors.Is(err, ErrIncompatible) || errors.Is(err, ErrEmptyCredential) {
		return err.Error()
	}
	return MsgGeneric
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
