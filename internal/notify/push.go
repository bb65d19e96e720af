package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
)

// defaultHTTPTimeout bounds a single channel send attempt.
const defaultHTTPTimeout = 10 * time.Second

// PushChannel delivers notifications through a chat-push API.
//
// The transport is a form-encoded POST with bearer token auth, one call per
// recipient. Push APIs enforce per-recipient quotas, which makes this the
// low-reliability channel in the fallback table: quota exhaustion surfaces
// as HTTP 429 and is mapped to ErrRateLimited.
type PushChannel struct {
	cfg    config.PushChannelConfig
	client *http.Client
}

// NewPushChannel creates a push channel from configuration.
func NewPushChannel(cfg config.PushChannelConfig) *PushChannel {
	return &PushChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Name returns the channel identity.
func (p *PushChannel) Name() ChannelName { return ChannelPush }

// SupportsAttachments reports attachment capability. The push API is
// text-only; attachments route to the webhook channel.
func (p *PushChannel) SupportsAttachments() bool { return false }

// Send delivers the request's text fragments as one push message.
//
// Returns:
//   - error: ErrChannelUnavailable if disabled, ErrRateLimited on HTTP 429,
//     ErrPermanent on other 4xx, a transient error on network failure or 5xx
func (p *PushChannel) Send(ctx context.Context, req Request) error {
	if !p.cfg.Enabled {
		return fmt.Errorf("%w: push disabled", ErrChannelUnavailable)
	}

	text := req.Text()
	if text == "" {
		return fmt.Errorf("%w: empty message", ErrPermanent)
	}

	form := url.Values{}
	form.Set("message", text)
	if req.Recipient != "" {
		form.Set("to", req.Recipient)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building push request: %w", ErrPermanent, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.Token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: push quota exhausted", ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("push server error: status %d", resp.StatusCode)
	default:
		return fmt.Errorf("%w: push rejected with status %d", ErrPermanent, resp.StatusCode)
	}
}
