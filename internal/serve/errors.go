package serve

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError reports a webhook whose signature does not match the channel secret.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// BackendError reports a failed call to the conversational backend or the
// LINE API while handling an event. The webhook answers 500 so LINE can
// redeliver; nothing is retried here.
type BackendError struct {
	Op  string // chat, upload, reply
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// requestError reports a webhook body that could not be parsed.
type requestError struct {
	Err error
}

func (e *requestError) Error() string {
	return "invalid request body: " + e.Err.Error()
}

func (e *requestError) Unwrap() error {
	return e.Err
}

// statusFor maps a handler error to the HTTP status returned to LINE.
func statusFor(err error) int {
	var (
		authErr *AuthError
		reqErr  *requestError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &authErr), errors.As(err, &reqErr):
		return http.StatusBadRequest
	default:
		// BackendError and anything unexpected
		return http.StatusInternalServerError
	}
}
