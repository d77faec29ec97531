package usecases

import "errors"

var (
	// ErrEmptySubmission is returned for submissions that are empty after
	// trimming. Rejected before any side effect.
	ErrEmptySubmission = errors.New("submission text is empty")

	// ErrSubmissionInFlight is returned when a submission arrives while a
	// previous one is still outstanding. Submissions are serialized to keep
	// transcript order deterministic and to prevent route-replacement races.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrMalformedRoute is returned when a response marked as a route is
	// missing required fields. The active route is left untouched.
	ErrMalformedRoute = errors.New("malformed route in response")

	// ErrNoActiveRoute is returned when trip metrics are requested before
	// any route has been generated.
	ErrNoActiveRoute = errors.New("no active route")

	// ErrNoPosition is returned when an operation needs a position but no
	// sample has arrived yet.
	ErrNoPosition = errors.New("no position sample yet")

	// ErrSessionNotFound is returned by the session registry for unknown IDs.
	ErrSessionNotFound = errors.New("session not found")
)
