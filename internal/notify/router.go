package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
)

// Fallback delivery constants.
const (
	// fallbackMarker prefixes messages delivered through a fallback channel.
	fallbackMarker = "[fallback]"

	// maxFallbackLength truncates fallback messages; the secondary channel
	// gets an abbreviated version, not the full body.
	maxFallbackLength = 200
)

// Logger is the minimal logging interface the router needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Router delivers notification requests across channels with per-channel
// retry and cross-channel fallback.
//
// The fallback table maps a primary channel to the channel that receives an
// abbreviated copy when the primary exhausts its retries and nothing else
// was attempted. It is resolved once per request from configuration, never
// re-derived at call sites.
//
// Send is fail-soft: it returns false when no channel accepted, and no error
// or panic ever escapes to the calling flow.
type Router struct {
	channels map[ChannelName]Channel
	fallback map[ChannelName]ChannelName
	retry    config.RetryConfig
	logger   Logger
}

// NewRouter creates a notification router.
//
// Parameters:
//   - retry: Bounded retry policy applied per channel
//   - fallback: Primary-to-secondary channel mapping from configuration
func NewRouter(retry config.RetryConfig, fallback map[string]string) *Router {
	fb := make(map[ChannelName]ChannelName, len(fallback))
	for primary, secondary := range fallback {
		fb[ChannelName(primary)] = ChannelName(secondary)
	}

	return &Router{
		channels: make(map[ChannelName]Channel),
		fallback: fb,
		retry:    retry,
		logger:   noopLogger{},
	}
}

// Register adds a channel to the router.
func (r *Router) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// Send delivers a request to its target channels.
//
// Per channel: bounded retry with exponential backoff for transient
// failures; rate limiting is logged and not retried; permanent failures stop
// immediately. If the primary channel fails after exhausting retries and no
// other channel was attempted, the configured fallback channel receives an
// abbreviated, marker-prefixed copy. Attachments always route to the first
// attachment-capable channel; a text-only notice goes to the others.
//
// Parameters:
//   - ctx: Context bounding the whole delivery
//   - req: The notification to deliver
//
// Returns:
//   - bool: true iff at least one channel accepted the message. A false
//     return means no human will see this notification.
func (r *Router) Send(ctx context.Context, req Request) (delivered bool) {
	// A notification must never take down the event flow that produced it.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("notification send panic recovered", "panic", rec)
			delivered = false
		}
	}()

	channels := r.resolve(req.Channels)
	if len(channels) == 0 {
		r.logger.Warn("notification dropped",
			"error", ErrNoChannels, "requested", req.Channels, "bucket", req.Bucket)
		return false
	}

	attempted := make(map[ChannelName]bool, len(channels)+1)
	success := false

	// Attachments go to an attachment-capable channel first; everyone else
	// gets a text-only notice.
	textReq := req
	if req.HasAttachments() {
		if carrier := r.firstAttachmentCapable(channels); carrier != nil {
			attempted[carrier.Name()] = true
			if err := r.sendWithRetry(ctx, carrier, req); err != nil {
				r.logger.Warn("attachment delivery failed",
					"channel", carrier.Name(), "error", err)
			} else {
				success = true
			}
			textReq = req.withAttachmentNotice(carrier.Name())
		} else {
			textReq = req.withoutAttachments()
		}
	}

	for _, ch := range channels {
		if attempted[ch.Name()] {
			continue
		}

		othersAttempted := len(attempted) > 0
		attempted[ch.Name()] = true

		err := r.sendWithRetry(ctx, ch, textReq)
		if err == nil {
			success = true
			continue
		}
		r.logger.Warn("channel delivery failed",
			"channel", ch.Name(), "bucket", req.Bucket, "error", err)

		// Rate limiting is a soft failure, not escalation-worthy.
		if errors.Is(err, ErrRateLimited) {
			continue
		}

		if !othersAttempted {
			if ok := r.tryFallback(ctx, ch.Name(), textReq, attempted); ok {
				success = true
			}
		}
	}

	if !success {
		r.logger.Error("notification undelivered",
			"error", ErrAllChannelsFailed, "bucket", req.Bucket, "channels", req.Channels)
	}
	return success
}

// tryFallback delivers an abbreviated copy through the configured secondary
// channel. Returns true if the secondary accepted.
func (r *Router) tryFallback(ctx context.Context, failed ChannelName, req Request, attempted map[ChannelName]bool) bool {
	secondaryName, ok := r.fallback[failed]
	if !ok || attempted[secondaryName] {
		return false
	}
	secondary, ok := r.channels[secondaryName]
	if !ok {
		return false
	}

	attempted[secondaryName] = true
	fbReq := req.abbreviated(failed)

	if err := r.sendWithRetry(ctx, secondary, fbReq); err != nil {
		r.logger.Warn("fallback delivery failed",
			"primary", failed, "fallback", secondaryName, "error", err)
		return false
	}

	r.logger.Info("notification delivered via fallback",
		"primary", failed, "fallback", secondaryName)
	return true
}

// sendWithRetry attempts one channel with the bounded retry policy.
//
// Transient failures back off exponentially between attempts. Rate limiting
// and permanent failures return immediately.
func (r *Router) sendWithRetry(ctx context.Context, ch Channel, req Request) error {
	maxAttempts := r.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	backoff := time.Duration(r.retry.InitialBackoff) * time.Second
	maxBackoff := time.Duration(r.retry.MaxBackoff) * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = ch.Send(ctx, req)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrRateLimited) ||
			errors.Is(lastErr, ErrPermanent) ||
			errors.Is(lastErr, ErrChannelUnavailable) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		r.logger.Debug("transient channel failure, retrying",
			"channel", ch.Name(), "attempt", attempt, "backoff", backoff, "error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("delivery cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if maxBackoff > 0 && backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}

// resolve maps channel names to registered channels, preserving order.
func (r *Router) resolve(set ChannelSet) []Channel {
	out := make([]Channel, 0, len(set))
	for _, name := range set {
		ch, ok := r.channels[name]
		if !ok {
			r.logger.Warn("unknown notification channel requested", "channel", name)
			continue
		}
		out = append(out, ch)
	}
	return out
}

// firstAttachmentCapable returns the first channel that can carry binary
// payloads, preferring the request's own channels over the full registry.
func (r *Router) firstAttachmentCapable(requested []Channel) Channel {
	for _, ch := range requested {
		if ch.SupportsAttachments() {
			return ch
		}
	}
	for _, ch := range r.channels {
		if ch.SupportsAttachments() {
			return ch
		}
	}
	return nil
}

// withAttachmentNotice strips attachments and appends a notice that they
// were delivered on another channel.
func (r Request) withAttachmentNotice(carrier ChannelName) Request {
	out := r.withoutAttachments()
	out.Fragments = append(out.Fragments,
		TextFragment(fmt.Sprintf("\n(attachment delivered via %s)", carrier)))
	return out
}

// withoutAttachments returns a copy keeping only text fragments.
func (r Request) withoutAttachments() Request {
	out := r
	out.Fragments = make([]Fragment, 0, len(r.Fragments))
	for _, f := range r.Fragments {
		if f.Type == FragmentText {
			out.Fragments = append(out.Fragments, f)
		}
	}
	return out
}

// abbreviated returns the truncated, marker-prefixed fallback copy.
func (r Request) abbreviated(failed ChannelName) Request {
	text := r.Text()
	if len(text) > maxFallbackLength {
		text = text[:maxFallbackLength] + "…"
	}

	out := r
	out.Fragments = []Fragment{
		TextFragment(fmt.Sprintf("%s (%s unreachable) %s", fallbackMarker, failed, text)),
	}
	return out
}
