package types

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("missing required configuration")
var ErrNetwork = errors.New("network failure reaching remote service")
var ErrDecode = errors.New("unexpected response shape")

// RemoteError is an explicit rejection from a remote service (auth failure,
// constraint violation, bad API key). The caller decides whether and how to
// surface Message to the user.
type RemoteError struct {
	Provider string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected the request (status %d)", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// AsRemote unwraps err to a RemoteError if one is in the chain.
func AsRemote(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsCancellation reports whether err comes from a superseded or aborted
// operation. Cancellations are never surfaced to the user. A deadline
// expiring is not a cancellation: a transport timeout is a real failure the
// user must see.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
