package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrRateLimited = errors.New("rate limited")
)

// TransportError means the request never received a response.
// It matches ErrUnavailable with errors.Is.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnavailable, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// HTTPError is a non-2xx answer from the chat backend. Message and ErrorText
// carry the body's "message" and "error" fields when present.
type HTTPError struct {
	Status    int
	Message   string
	ErrorText string
}

func (e *HTTPError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("chat api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	case e.ErrorText != "":
		return fmt.Sprintf("chat api: %d %s: %s", e.Status, http.StatusText(e.Status), e.ErrorText)
	default:
		return fmt.Sprintf("chat api: %d %s", e.Status, http.StatusText(e.Status))
	}
}

// Is makes a 429 answer match ErrRateLimited.
func (e *HTTPError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}
