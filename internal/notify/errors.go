package notify

import "errors"

// Domain errors for the notify package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, notify.ErrRateLimited) {
//	    // soft failure, do not retry this call
//	}
var (
	// ErrRateLimited is returned when a channel signals throttling.
	// Logged at warning level, never retried within the same send.
	ErrRateLimited = errors.New("notify: rate limited")

	// ErrChannelUnavailable is returned when a channel is disabled or its
	// transport is disconnected.
	ErrChannelUnavailable = errors.New("notify: channel unavailable")

	// ErrPermanent is returned for failures that retrying cannot fix
	// (client errors, malformed requests).
	ErrPermanent = errors.New("notify: permanent channel failure")

	// ErrRetriesExhausted wraps the last transient error once a single
	// channel's retry budget is spent.
	ErrRetriesExhausted = errors.New("notify: retries exhausted")

	// ErrAllChannelsFailed marks the aggregate failure when no attempted
	// channel accepted a notification. Send converts it to a false return
	// and logs it; it never escapes as an error value.
	ErrAllChannelsFailed = errors.New("notify: all channels failed")

	// ErrNoChannels marks a request that resolves to no registered channel.
	// Logged by Send; the request is dropped.
	ErrNoChannels = errors.New("notify: no channels configured for request")
)
