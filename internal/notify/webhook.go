package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
)

// webhookHTTPTimeout is longer than the push timeout because attachment
// uploads can carry snapshot images.
const webhookHTTPTimeout = 30 * time.Second

// WebhookChannel delivers notifications to a group-chat webhook.
//
// Buckets map a named sub-destination (alerts, reports, errors) to a webhook
// URL, so routing changes without changing transport. Text goes as a JSON
// body, attachments as multipart uploads.
type WebhookChannel struct {
	cfg    config.WebhookChannelConfig
	client *http.Client
}

// NewWebhookChannel creates a webhook channel from configuration.
func NewWebhookChannel(cfg config.WebhookChannelConfig) *WebhookChannel {
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: webhookHTTPTimeout},
	}
}

// Name returns the channel identity.
func (w *WebhookChannel) Name() ChannelName { return ChannelWebhook }

// SupportsAttachments reports attachment capability.
func (w *WebhookChannel) SupportsAttachments() bool { return true }

// Send delivers the request to the webhook URL for its bucket.
//
// Returns:
//   - error: ErrChannelUnavailable if disabled or the bucket has no URL,
//     ErrRateLimited on HTTP 429, ErrPermanent on other 4xx, a transient
//     error on network failure or 5xx
func (w *WebhookChannel) Send(ctx context.Context, req Request) error {
	if !w.cfg.Enabled {
		return fmt.Errorf("%w: webhook disabled", ErrChannelUnavailable)
	}

	endpoint, ok := w.cfg.Buckets[req.Bucket]
	if !ok || endpoint == "" {
		return fmt.Errorf("%w: no webhook for bucket %q", ErrChannelUnavailable, req.Bucket)
	}

	var httpReq *http.Request
	var err error
	if req.HasAttachments() {
		httpReq, err = w.buildMultipartRequest(ctx, endpoint, req)
	} else {
		httpReq, err = w.buildJSONRequest(ctx, endpoint, req)
	}
	if err != nil {
		return fmt.Errorf("%w: building webhook request: %w", ErrPermanent, err)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: webhook throttled", ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("webhook server error: status %d", resp.StatusCode)
	default:
		return fmt.Errorf("%w: webhook rejected with status %d", ErrPermanent, resp.StatusCode)
	}
}

// buildJSONRequest constructs a text-only webhook POST.
func (w *WebhookChannel) buildJSONRequest(ctx context.Context, endpoint string, req Request) (*http.Request, error) {
	body, err := json.Marshal(map[string]string{"content": req.Text()})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

// buildMultipartRequest constructs a webhook POST carrying attachments.
func (w *WebhookChannel) buildMultipartRequest(ctx context.Context, endpoint string, req Request) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if text := req.Text(); text != "" {
		if err := writer.WriteField("content", text); err != nil {
			return nil, err
		}
	}

	index := 0
	for _, frag := range req.Fragments {
		if frag.Type != FragmentAttachment {
			continue
		}
		name := frag.Filename
		if name == "" {
			name = fmt.Sprintf("attachment-%d", index)
		}
		part, err := writer.CreateFormFile(fmt.Sprintf("file%d", index), name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, bytes.NewReader(frag.Binary)); err != nil {
			return nil, err
		}
		index++
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return httpReq, nil
}
