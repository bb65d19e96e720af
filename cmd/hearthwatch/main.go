// Hearthwatch Core - Home Sensor Alerting
//
// This is the main entry point for the Hearthwatch Core service. It wires
// together the webhook ingest API, the device directory, the per-device
// state tracker, the notification router, and the append-only event sink,
// then waits for a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/hearthwatch/hearthwatch-core/migrations"

	"github.com/hearthwatch/hearthwatch-core/internal/api"
	"github.com/hearthwatch/hearthwatch-core/internal/classify"
	"github.com/hearthwatch/hearthwatch-core/internal/directory"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/config"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/database"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/influxdb"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/logging"
	"github.com/hearthwatch/hearthwatch-core/internal/infrastructure/mqtt"
	"github.com/hearthwatch/hearthwatch-core/internal/notify"
	"github.com/hearthwatch/hearthwatch-core/internal/tracker"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// defaultAlertBucket is the notification bucket tracker alerts are routed to.
const defaultAlertBucket = "alerts"

func main() {
	// Cancel the root context on interrupt signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearthwatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the directory database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the device directory
	repo := directory.NewSQLiteRepository(db.DB)
	registry := directory.NewRegistry(repo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device directory: %w", refreshErr)
	}
	log.Info("device directory initialised", "devices", registry.DeviceCount())

	// Connect to InfluxDB (optional event sink)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled, events will not be persisted")
	}

	// Connect to MQTT (optional wall-panel broadcast channel)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil && !errors.Is(err, mqtt.ErrDisabled) {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Build the notification router from the enabled channels
	router, channels := buildNotifyRouter(cfg, mqttClient, log)
	if len(channels) == 0 {
		log.Warn("no notification channels enabled, alerts will only be persisted")
	}

	// Build the classifier and tracker pipeline
	var readings classify.ReadingSource
	var sink tracker.EventSink
	if influxClient != nil {
		readings = influxClient
		sink = influxClient
	}

	classifier := classify.New(registry, readings, cfg.Tracker)
	classifier.SetLogger(log)

	trk := tracker.New(tracker.Dependencies{
		Classifier: classifier,
		Sink:       sink,
		Notifier:   router,
		Policy:     cfg.Tracker,
		Recipient:  cfg.Notify.Recipient,
		Channels:   channels,
		Bucket:     defaultAlertBucket,
	})
	trk.SetLogger(log)
	if startErr := trk.Start(ctx); startErr != nil {
		return fmt.Errorf("starting tracker: %w", startErr)
	}
	defer func() {
		log.Info("stopping tracker")
		if closeErr := trk.Close(); closeErr != nil {
			log.Error("error stopping tracker", "error", closeErr)
		}
	}()
	log.Info("tracker started", "queue_size", cfg.Tracker.QueueSize)

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Security:  cfg.Security,
		Logger:    log,
		Directory: registry,
		Events:    trk,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting api server: %w", startErr)
	}
	defer func() {
		log.Info("stopping api server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping api server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Tracker
	// 3. MQTT (if enabled)
	// 4. InfluxDB (if enabled)
	// 5. Database

	log.Info("Hearthwatch Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTHWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTHWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildNotifyRouter constructs the notification router and registers every
// enabled channel. The returned ChannelSet lists the enabled channels in
// preference order and shapes the requests the tracker emits.
func buildNotifyRouter(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (*notify.Router, notify.ChannelSet) {
	router := notify.NewRouter(cfg.Notify.Retry, cfg.Notify.Fallback)
	router.SetLogger(log)

	var names []notify.ChannelName

	if cfg.Notify.Push.Enabled {
		router.Register(notify.NewPushChannel(cfg.Notify.Push))
		names = append(names, notify.ChannelPush)
	}
	if cfg.Notify.Webhook.Enabled {
		router.Register(notify.NewWebhookChannel(cfg.Notify.Webhook))
		names = append(names, notify.ChannelWebhook)
	}
	if cfg.Notify.MQTT.Enabled && mqttClient != nil {
		router.Register(notify.NewMQTTChannel(cfg.Notify.MQTT, mqttClient, byte(cfg.MQTT.QoS)))
		names = append(names, notify.ChannelMQTT)
	}

	return router, notify.NewChannelSet(names...)
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
