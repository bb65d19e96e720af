package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
)

func TestPushChannel_Send(t *testing.T) {
	t.Run("delivers text with auth header", func(t *testing.T) {
		var gotAuth, gotMessage string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm() error = %v", err)
			}
			gotMessage = r.FormValue("message")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushChannelConfig{
			Enabled: true, URL: srv.URL, Token: "secret-token",
		})

		err := ch.Send(context.Background(), testRequest(ChannelPush))
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if gotAuth != "Bearer secret-token" {
			t.Errorf("Authorization = %q, want bearer token", gotAuth)
		}
		if gotMessage != "Hallway Motion detected" {
			t.Errorf("message = %q", gotMessage)
		}
	})

	t.Run("maps 429 to rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushChannelConfig{Enabled: true, URL: srv.URL})
		err := ch.Send(context.Background(), testRequest(ChannelPush))
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("Send() error = %v, want ErrRateLimited", err)
		}
	})

	t.Run("maps 4xx to permanent", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushChannelConfig{Enabled: true, URL: srv.URL})
		err := ch.Send(context.Background(), testRequest(ChannelPush))
		if !errors.Is(err, ErrPermanent) {
			t.Errorf("Send() error = %v, want ErrPermanent", err)
		}
	})

	t.Run("5xx is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ch := NewPushChannel(config.PushChannelConfig{Enabled: true, URL: srv.URL})
		err := ch.Send(context.Background(), testRequest(ChannelPush))
		if err == nil {
			t.Fatal("Send() error = nil, want transient error")
		}
		if errors.Is(err, ErrPermanent) || errors.Is(err, ErrRateLimited) {
			t.Errorf("Send() error = %v, want plain transient", err)
		}
	})

	t.Run("disabled channel unavailable", func(t *testing.T) {
		ch := NewPushChannel(config.PushChannelConfig{Enabled: false})
		err := ch.Send(context.Background(), testRequest(ChannelPush))
		if !errors.Is(err, ErrChannelUnavailable) {
			t.Errorf("Send() error = %v, want ErrChannelUnavailable", err)
		}
	})
}

func TestWebhookChannel_Send(t *testing.T) {
	t.Run("posts JSON content to bucket URL", func(t *testing.T) {
		var gotContentType string
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		ch := NewWebhookChannel(config.WebhookChannelConfig{
			Enabled: true,
			Buckets: map[string]string{"alerts": srv.URL},
		})

		err := ch.Send(context.Background(), testRequest(ChannelWebhook))
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if gotContentType != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", gotContentType)
		}
		if !strings.Contains(string(gotBody), "Hallway Motion detected") {
			t.Errorf("body %q missing message content", gotBody)
		}
	})

	t.Run("unknown bucket unavailable", func(t *testing.T) {
		ch := NewWebhookChannel(config.WebhookChannelConfig{
			Enabled: true,
			Buckets: map[string]string{"alerts": "http://example.invalid"},
		})

		req := testRequest(ChannelWebhook)
		req.Bucket = "reports"
		err := ch.Send(context.Background(), req)
		if !errors.Is(err, ErrChannelUnavailable) {
			t.Errorf("Send() error = %v, want ErrChannelUnavailable", err)
		}
	})

	t.Run("attachments sent as multipart", func(t *testing.T) {
		var gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm() error = %v", err)
			}
			if r.MultipartForm == nil || len(r.MultipartForm.File) != 1 {
				t.Error("expected one uploaded file")
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ch := NewWebhookChannel(config.WebhookChannelConfig{
			Enabled: true,
			Buckets: map[string]string{"alerts": srv.URL},
		})

		req := Request{
			Fragments: []Fragment{
				TextFragment("Porch snapshot"),
				AttachmentFragment("porch.jpg", []byte{0xff, 0xd8, 0xff}),
			},
			Channels: NewChannelSet(ChannelWebhook),
			Bucket:   "alerts",
		}

		if err := ch.Send(context.Background(), req); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if !strings.HasPrefix(gotContentType, "multipart/form-data") {
			t.Errorf("Content-Type = %q, want multipart", gotContentType)
		}
	})
}

// mockPublisher implements Publisher for MQTT channel tests.
type mockPublisher struct {
	connected bool
	topic     string
	payload   []byte
	err       error
}

func (m *mockPublisher) Publish(topic string, payload []byte, _ byte, _ bool) error {
	m.topic = topic
	m.payload = payload
	return m.err
}

func (m *mockPublisher) IsConnected() bool { return m.connected }

func TestMQTTChannel_Send(t *testing.T) {
	cfg := config.MQTTChannelConfig{Enabled: true, TopicPrefix: "hearthwatch/alert"}

	t.Run("publishes to bucket topic", func(t *testing.T) {
		pub := &mockPublisher{connected: true}
		ch := NewMQTTChannel(cfg, pub, 1)

		if err := ch.Send(context.Background(), testRequest(ChannelMQTT)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if pub.topic != "hearthwatch/alert/alerts" {
			t.Errorf("topic = %q, want hearthwatch/alert/alerts", pub.topic)
		}
		if !strings.Contains(string(pub.payload), "Hallway Motion detected") {
			t.Errorf("payload %q missing message", pub.payload)
		}
	})

	t.Run("empty prefix uses default namespace", func(t *testing.T) {
		pub := &mockPublisher{connected: true}
		ch := NewMQTTChannel(config.MQTTChannelConfig{Enabled: true}, pub, 1)

		if err := ch.Send(context.Background(), testRequest(ChannelMQTT)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if pub.topic != "hearthwatch/alert/alerts" {
			t.Errorf("topic = %q, want hearthwatch/alert/alerts", pub.topic)
		}
	})

	t.Run("disconnected broker unavailable", func(t *testing.T) {
		ch := NewMQTTChannel(cfg, &mockPublisher{connected: false}, 1)
		err := ch.Send(context.Background(), testRequest(ChannelMQTT))
		if !errors.Is(err, ErrChannelUnavailable) {
			t.Errorf("Send() error = %v, want ErrChannelUnavailable", err)
		}
	})

	t.Run("nil publisher unavailable", func(t *testing.T) {
		ch := NewMQTTChannel(cfg, nil, 1)
		err := ch.Send(context.Background(), testRequest(ChannelMQTT))
		if !errors.Is(err, ErrChannelUnavailable) {
			t.Errorf("Send() error = %v, want ErrChannelUnavailable", err)
		}
	})
}
