package notify

import "context"

// Channel is a transport-specific notification sender.
//
// Implementations construct a channel-native message from the request's
// ordered fragments and deliver it. Errors classify the failure for the
// router's retry logic: ErrRateLimited is never retried, ErrPermanent and
// ErrChannelUnavailable stop retrying, anything else is treated as transient
// and retried with backoff.
type Channel interface {
	// Name returns the channel's identity for routing and logs.
	Name() ChannelName

	// SupportsAttachments reports whether binary fragments can be delivered
	// natively on this channel.
	SupportsAttachments() bool

	// Send delivers one request. Called repeatedly by the router's retry
	// loop, so it must be safe to invoke more than once per request.
	Send(ctx context.Context, req Request) error
}
