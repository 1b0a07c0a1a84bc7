package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthFailed is returned when a token refresh did not yield a usable
// access token. Callers should treat it as "log in again".
var ErrAuthFailed = errors.New("authentication failed, please log in again")

// ErrEmptyResourceID is returned by [StatusPoller.Start] when no resource
// id was supplied.
var ErrEmptyResourceID = errors.New("resource id must not be empty")

// ErrGatewayClosed is returned for requests issued after [Gateway.Close].
var ErrGatewayClosed = errors.New("gateway closed")

// APIError is a non-2xx response from the service. Detail carries the
// server-provided message when one was present in the body, otherwise the
// HTTP status text.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// IsAuthError reports whether err is an authorization failure (HTTP 401).
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
