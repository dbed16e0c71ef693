package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession = errors.New("no active session")

	// ErrNetworkUnavailable marks transport-level failures (DNS, timeout,
	// connection refused, 5xx). A credential rejected behind this error may
	// still be valid; only connectivity is unknown.
	ErrNetworkUnavailable = errors.New("service unreachable")

	// ErrIncompleteCredentials is returned when the server answers a login or
	// account-creation request without both tokens.
	ErrIncompleteCredentials = errors.New("server response missing session credentials")
)

// APIError is an application-level rejection from the account service, as
// opposed to a network-class failure.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("status %d", e.StatusCode)
	}
}
