package messaging

import "errors"

// Sentinel errors for the message-creation pipeline. Validation and
// authorization errors are detected before any state mutation; storage and
// allocation failures are wrapped with %w so callers can unwrap them.
var (
	// ErrContentEmpty rejects empty or absent message content.
	ErrContentEmpty = errors.New("message content is empty")

	// ErrContentTooLong rejects content over the configured length limit.
	ErrContentTooLong = errors.New("message content exceeds length limit")

	// ErrNotAllowed rejects sends from users outside the room's membership.
	ErrNotAllowed = errors.New("user is not a member of the room")

	// ErrHookRejected wraps a pre-persist hook veto; nothing is persisted
	// when it is returned.
	ErrHookRejected = errors.New("message rejected by pre-persist hook")
)
