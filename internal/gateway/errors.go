package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for any non-2xx response or transport failure.
type Error struct {
	Method     string
	Path       string
	StatusCode int // zero when the request never got a response
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the server-provided message, or fallback when the
// server gave none.
func (e *Error) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// Transport reports whether the request failed before a response arrived.
func (e *Error) Transport() bool {
	return e.StatusCode == 0
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}
