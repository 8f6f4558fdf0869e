package client

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotLoggedIn = errors.New("not logged in")

// codeUnauthorized is the error code the server sends for a missing or bad token.
const codeUnauthorized = "unauthorized"

// APIError is a non-2xx answer from the API. Message is the server's text, verbatim.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsUnauthenticated reports whether the auth gate rejected the token itself.
// An ownership denial is also a 401 but leaves the session valid.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.Code == codeUnauthorized
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
