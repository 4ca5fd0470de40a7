package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/netx"
)

var (
	ErrNoSession = errors.New("no active session")
	ErrNoCode    = errors.New("no authorization code")
	ErrNoPKCE    = errors.New("no pending oauth sign-in")
)

// APIError is a non-2xx answer from GoTrue or PostgREST.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// Is makes 401 answers match common.ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == common.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// errorBody covers the error shapes of GoTrue and PostgREST.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var se *netx.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("supabase: %w", err)
	}

	ae := &APIError{Status: se.Code}
	var body errorBody
	if json.Unmarshal(se.Body, &body) == nil {
		ae.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, body.Error)
		ae.Code = body.ErrorCode
		if ae.Code == "" {
			if s, ok := body.Code.(string); ok {
				ae.Code = s
			} else if body.Error != "" && body.Error != ae.Message {
				ae.Code = body.Error
			}
		}
	}
	return ae
}

// isRejected reports whether the server refused the credentials themselves,
// as opposed to being unreachable or failing internally.
func isRejected(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusBadRequest || ae.Status == http.StatusUnauthorized || ae.Status == http.StatusForbidden
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
