package main

import (
	"testing"

	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/logging"
	"github.com/hearthwatch/hearthwatch-core/internal/notify"
)

func TestGetConfigPath(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		t.Setenv("HEARTHWATCH_CONFIG", "")
		if got := getConfigPath(); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("HEARTHWATCH_CONFIG", "/etc/hearthwatch/config.yaml")
		if got := getConfigPath(); got != "/etc/hearthwatch/config.yaml" {
			t.Errorf("getConfigPath() = %q, want override", got)
		}
	})
}

func TestBuildNotifyRouter(t *testing.T) {
	baseConfig := func() *config.Config {
		return &config.Config{
			Notify: config.NotifyConfig{
				Retry:    config.RetryConfig{MaxAttempts: 3, InitialBackoff: 1, MaxBackoff: 30},
				Fallback: map[string]string{"push": "webhook"},
			},
		}
	}

	t.Run("no channels enabled", func(t *testing.T) {
		router, channels := buildNotifyRouter(baseConfig(), nil, logging.Default())
		if router == nil {
			t.Fatal("buildNotifyRouter() router = nil")
		}
		if len(channels) != 0 {
			t.Errorf("channels = %v, want empty", channels)
		}
	})

	t.Run("enabled channels in preference order", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Notify.Push = config.PushChannelConfig{Enabled: true, URL: "http://push.local"}
		cfg.Notify.Webhook = config.WebhookChannelConfig{
			Enabled: true,
			Buckets: map[string]string{"alerts": "http://hook.local"},
		}

		_, channels := buildNotifyRouter(cfg, nil, logging.Default())
		if len(channels) != 2 {
			t.Fatalf("channels = %v, want push and webhook", channels)
		}
		if channels.Primary() != notify.ChannelPush {
			t.Errorf("Primary() = %v, want push", channels.Primary())
		}
	})

	t.Run("mqtt channel requires a connected client", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Notify.MQTT = config.MQTTChannelConfig{Enabled: true, TopicPrefix: "hearthwatch/alert"}

		_, channels := buildNotifyRouter(cfg, nil, logging.Default())
		if channels.Contains(notify.ChannelMQTT) {
			t.Error("mqtt channel registered without an MQTT client")
		}
	})
}
