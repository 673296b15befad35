package domain

import "errors"

// Error taxonomy shared by the stores and the adapters.
// Callers match with errors.Is; the stores wrap these with context.
var (
	// ErrConnectionUnavailable means the remote store could not be reached when
	// a subscription was opened. Local state stays at its last-known value.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrWriteFailed means the remote half of an optimistic write did not complete.
	// The optimistic local state is kept as-is.
	ErrWriteFailed = errors.New("write failed")

	// ErrInvalidOperation is returned synchronously for operations that are not
	// allowed in the current state, with no partial effect.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrPayloadTooLarge is returned when a screenshot exceeds MaxScreenshotBytes.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInvalidTrade is returned when a trade draft fails validation.
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrNotFound is returned by document stores for missing documents.
	ErrNotFound = errors.New("not found")
)
