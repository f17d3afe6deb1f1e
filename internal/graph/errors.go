package graph

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned when Graph has no object for the request, either via
// a 404 or an empty response body.
var ErrNotFound = errors.New("not found")

// RemoteError is a non-2xx response from Graph.
type RemoteError struct {
	Op         string
	StatusCode int
	Code       string // Graph error code, e.g. "itemNotFound"
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph %s: %d %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph %s: status %d", e.Op, e.StatusCode)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsRemote reports whether err came from talking to Graph or the identity
// provider, as opposed to a local fault.
func IsRemote(err error) bool {
	if err == nil {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return true
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// errorEnvelope is Graph's error body.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
