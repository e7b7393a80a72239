package survey

import "errors"

// Protocol errors reported synchronously to the conversational agent. None of
// these are retried internally; delivery-level duplicates are absorbed by the
// idempotent catalog sync and the write-once answer guard instead.
var (
	// ErrUnknownCaller signals that no caller is registered for the phone
	// number. Not fatal: the agent is expected to proceed to caller creation.
	ErrUnknownCaller = errors.New("unknown caller")

	// ErrDuplicateCaller signals a create request for a phone number that is
	// already registered. The agent should use lookup instead.
	ErrDuplicateCaller = errors.New("caller already registered")

	// ErrStaleAnswer signals an answer aimed at a record that is not the
	// caller's current outstanding question: already answered, out of order,
	// or the caller has nothing outstanding. The stored answer is left intact.
	ErrStaleAnswer = errors.New("stale answer reference")
)
