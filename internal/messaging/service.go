// Package messaging defines the outbound message delivery abstraction for
// VendaZap.
//
// The worker pipeline depends on this interface rather than the Twilio
// client, so tests can swap in a recording implementation.
package messaging

import (
	"context"
	"errors"
)

// ErrServiceStopped is returned by send operations after Stop.
var ErrServiceStopped = errors.New("messaging service stopped")

// ErrPermanent marks delivery failures that can never succeed on retry, such
// as an invalid recipient or a Twilio 4xx rejection. Callers check it with
// errors.Is to decide whether to requeue.
var ErrPermanent = errors.New("permanent delivery failure")

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Returns the canonicalized recipient and an error if
	// validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Stop stops the service; subsequent sends fail with ErrServiceStopped.
	Stop() error
}
