package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable wraps transport-level failures. Retrying the whole sync
	// later is safe.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is returned for HTTP 401 on an authenticated call.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuth is returned when login is rejected. It is never retried.
	ErrAuth = errors.New("authentication failed")
	// ErrTokenRefresh is returned when the refresh token is rejected.
	ErrTokenRefresh = errors.New("token refresh failed")
	// ErrServer covers any other non-2xx response.
	ErrServer = errors.New("server error")
	// ErrInactiveSubscription is terminal until the user renews.
	ErrInactiveSubscription = errors.New("inactive subscription")
	// ErrBadResponse is returned when a 2xx body cannot be decoded.
	ErrBadResponse = errors.New("malformed server response")
)

const codeInactiveSubscription = "inactive_subscription"

// ServerError describes a non-2xx response.
type ServerError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ServerError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("server returned %d: %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Code != "":
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Code)
	case e.Message != "":
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// Is lets callers match a ServerError against ErrServer or, for the
// subscription case, ErrInactiveSubscription.
func (e *ServerError) Is(target error) bool {
	if e.Code == codeInactiveSubscription {
		return target == ErrInactiveSubscription
	}
	return target == ErrServer
}
