package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hearthwatch Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings for the device directory.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains connection settings for the event sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker carries the wall-panel alert broadcast channel.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	TLS       TLSConfig        `yaml:"tls"`
	Timeouts  APITimeoutConfig `yaml:"timeouts"`
	CORS      CORSConfig       `yaml:"cors"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the live alert feed.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT settings for the directory admin API.
// Tokens are minted by the household hub's account service; this core
// only validates them.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// TrackerConfig contains device state tracker policy settings.
type TrackerConfig struct {
	// QueueSize is the per-device event queue depth. Events arriving while
	// the queue is full are dropped with a warning.
	QueueSize int `yaml:"queue_size"`

	// Categories maps a device category (motion, contact, plug, meter) to
	// its notification policy. Missing categories fall back to built-in
	// defaults via PolicyFor.
	Categories map[string]CategoryPolicy `yaml:"categories"`
}

// CategoryPolicy holds the per-category debounce and threshold settings.
type CategoryPolicy struct {
	// Cooldown is the minimum interval between immediate notifications for
	// a single device, in seconds.
	Cooldown int `yaml:"cooldown"`

	// ClearDelay is how long a "no longer detected" reading must hold before
	// a cleared notification is sent, in seconds. Zero disables the delay
	// (contact sensors report instantaneous open/close).
	ClearDelay int `yaml:"clear_delay"`

	// Threshold is the reading level whose crossing is notification-worthy
	// for plug and meter devices.
	Threshold float64 `yaml:"threshold"`
}

// NotifyConfig contains notification router settings.
type NotifyConfig struct {
	Recipient string               `yaml:"recipient"`
	Retry     RetryConfig          `yaml:"retry"`
	Fallback  map[string]string    `yaml:"fallback"`
	Push      PushChannelConfig    `yaml:"push"`
	Webhook   WebhookChannelConfig `yaml:"webhook"`
	MQTT      MQTTChannelConfig    `yaml:"mqtt"`
}

// RetryConfig contains the bounded retry policy for channel sends.
// Backoff values are in seconds.
type RetryConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	InitialBackoff int `yaml:"initial_backoff"`
	MaxBackoff     int `yaml:"max_backoff"`
}

// PushChannelConfig contains settings for the chat-push notification channel.
type PushChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
}

// WebhookChannelConfig contains settings for the group-chat webhook channel.
// Buckets map a named sub-destination (alerts, reports, errors) to a
// webhook URL.
type WebhookChannelConfig struct {
	Enabled bool              `yaml:"enabled"`
	Buckets map[string]string `yaml:"buckets"`
}

// MQTTChannelConfig contains settings for the wall-panel broadcast channel.
type MQTTChannelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HEARTHWATCH_SECTION_KEY
// For example: HEARTHWATCH_DATABASE_PATH, HEARTHWATCH_INFLUXDB_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "home-001",
			Name:     "Hearthwatch",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/hearthwatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hearthwatch-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			WebSocket: WebSocketConfig{
				Path:           "/ws",
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracker: TrackerConfig{
			QueueSize: 16,
			Categories: map[string]CategoryPolicy{
				"motion":  {Cooldown: 120, ClearDelay: 30},
				"contact": {Cooldown: 120, ClearDelay: 0},
				"plug":    {Cooldown: 300, Threshold: 150.0},
				"meter":   {Cooldown: 300, Threshold: 150.0},
			},
		},
		Notify: NotifyConfig{
			Recipient: "household",
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: 1,
				MaxBackoff:     30,
			},
			Fallback: map[string]string{
				"push": "webhook",
			},
			MQTT: MQTTChannelConfig{
				TopicPrefix: "hearthwatch/alert",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HEARTHWATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HEARTHWATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("HEARTHWATCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// MQTT
	if v := os.Getenv("HEARTHWATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HEARTHWATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HEARTHWATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("HEARTHWATCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Notification channel credentials
	if v := os.Getenv("HEARTHWATCH_PUSH_TOKEN"); v != "" {
		cfg.Notify.Push.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("HEARTHWATCH_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// The admin API mutates the device directory, which drives alert routing
	// for physical sensors. A weak secret would let an attacker silence or
	// redirect alerts, so the same minimum applies as for any credential.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HEARTHWATCH_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if c.Notify.Retry.MaxAttempts < 1 {
		errs = append(errs, "notify.retry.max_attempts must be at least 1")
	}

	if c.Notify.Push.Enabled && c.Notify.Push.URL == "" {
		errs = append(errs, "notify.push.url is required when push channel is enabled")
	}
	if c.Notify.Webhook.Enabled && len(c.Notify.Webhook.Buckets) == 0 {
		errs = append(errs, "notify.webhook.buckets must define at least one bucket when webhook channel is enabled")
	}

	for name := range c.Tracker.Categories {
		switch name {
		case "motion", "contact", "plug", "meter":
		default:
			errs = append(errs, fmt.Sprintf("tracker.categories: unknown category %q", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// PolicyFor returns the tracker policy for a device category.
// Unknown or unconfigured categories fall back to the motion defaults,
// which are the most conservative (short cooldown, debounced clear).
func (c *TrackerConfig) PolicyFor(category string) CategoryPolicy {
	if p, ok := c.Categories[category]; ok {
		return p
	}
	return CategoryPolicy{Cooldown: 120, ClearDelay: 30}
}

// CooldownDuration returns the cooldown interval as a Duration.
func (p CategoryPolicy) CooldownDuration() time.Duration {
	return time.Duration(p.Cooldown) * time.Second
}

// ClearDelayDuration returns the pending-clear delay as a Duration.
func (p CategoryPolicy) ClearDelayDuration() time.Duration {
	return time.Duration(p.ClearDelay) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
