package core

import "errors"

var (
	// ErrNoCredentials means no mail-provider credential is configured.
	// This is the one failure surfaced verbatim to the UI layer so it can
	// prompt for re-authorization.
	ErrNoCredentials = errors.New("mail provider credentials missing")

	// ErrMessageNotFound means the provider could not resolve a message
	// for the given hints.
	ErrMessageNotFound = errors.New("message not found")

	// ErrKeyNotFound is returned by PersistentStore implementations for an
	// absent key.
	ErrKeyNotFound = errors.New("key not found")
)

// FailureTag converts a lookup error into the wire-level tag the UI layer
// understands. Unknown errors map to the generic lookup_failed tag.
func FailureTag(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "no_token"
	case errors.Is(err, ErrMessageNotFound):
		return "no_message"
	default:
		return "lookup_failed"
	}
}
