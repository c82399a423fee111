package provider

import (
	"errors"
	"fmt"
)

// Terminal outcomes of an authorization handshake. None of these are
// retried automatically; the caller decides whether to start over.
var (
	// ErrAuthAborted is returned when the user aborted the handshake on
	// the gateway's authorization page.
	ErrAuthAborted = errors.New("authentication aborted")

	// ErrNoToken is returned when the completion message carried no
	// token field.
	ErrNoToken = errors.New("no auth token received in completion message")

	// ErrLoginCancelled is returned when the caller's context was done
	// before a completion message arrived.
	ErrLoginCancelled = errors.New("login cancelled")

	// ErrPreAuthUnavailable is returned when the provider requires
	// shared-credential pre-authorization and no pre-auth token could be
	// obtained.
	ErrPreAuthUnavailable = errors.New("pre-auth token unavailable")
)

// OriginRejectedError is returned when a completion message arrived from
// an origin the provider's allowed-origin configuration does not match.
type OriginRejectedError struct {
	// Origin is the rejected message origin.
	Origin string
	// Allowed describes the configured allowed-origin pattern.
	Allowed string
}

func (e *OriginRejectedError) Error() string {
	return fmt.Sprintf("message origin %q does not match allowed origins %q", e.Origin, e.Allowed)
}
