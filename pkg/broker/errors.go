package broker

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a 2xx body cannot be parsed into a token
var ErrMalformedResponse = errors.New("malformed token response")

// AuthFailure is returned when the authorization server rejects a request
type AuthFailure struct {
	StatusCode int
	Status     string // status field of the response envelope, when present
	Body       string
}

func (e *AuthFailure) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("authorization server rejected request: %d %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("authorization server rejected request: %d", e.StatusCode)
}

// NetworkError wraps transport failures. These are the only retried errors.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
