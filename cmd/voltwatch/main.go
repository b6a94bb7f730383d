// VoltWatch Core - Device Consumption Coordination Service
//
// This is the main entry point for the VoltWatch core service. It owns
// the device registry, validates device-user associations against the
// remote user directory, evaluates hourly consumption samples against
// per-device ceilings, and serves consumption reports aggregated from
// the remote monitoring service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/voltwatch/voltwatch-core/migrations"

	"github.com/voltwatch/voltwatch-core/internal/alerts"
	"github.com/voltwatch/voltwatch-core/internal/api"
	"github.com/voltwatch/voltwatch-core/internal/commands"
	"github.com/voltwatch/voltwatch-core/internal/consumption"
	"github.com/voltwatch/voltwatch-core/internal/device"
	"github.com/voltwatch/voltwatch-core/internal/directory"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/database"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/influxdb"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/mqtt"
	"github.com/voltwatch/voltwatch-core/internal/monitoring"
	"github.com/voltwatch/voltwatch-core/internal/rpc"
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

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting VoltWatch Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load .env (secrets like VOLTWATCH_JWT_SECRET in dev);
	// absence is fine, environment wins either way.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

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

	// Site timezone decides which local hour a consumption sample falls in
	loc := cfg.Location()

	// Open database
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

	// Device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// RPC client for outbound calls to the user directory and monitoring
	rpcClient, err := rpc.NewClient(mqttClient, cfg.RPC, log)
	if err != nil {
		return fmt.Errorf("creating rpc client: %w", err)
	}
	defer func() {
		if closeErr := rpcClient.Close(); closeErr != nil {
			log.Error("error closing rpc client", "error", closeErr)
		}
	}()

	directoryClient := directory.NewClient(rpcClient, cfg.RPC.DirectoryPrefix)
	monitoringClient := monitoring.NewClient(rpcClient, cfg.RPC.MonitoringPrefix)

	// Prometheus metrics
	m := metrics.New(prometheus.DefaultRegisterer)
	rpcClient.SetMetrics(m)

	// Connect to InfluxDB (optional consumption history)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Kafka alert ledger (optional). The interface stays nil when
	// disabled so the dispatcher skips the ledger entirely.
	var alertLedger alerts.Publisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := alerts.NewKafkaPublisher(cfg.Kafka)
		defer func() {
			log.Info("closing Kafka publisher")
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				log.Error("error closing Kafka publisher", "error", closeErr)
			}
		}()
		alertLedger = kafkaPublisher
		log.Info("Kafka alert ledger enabled",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.AlertsTopic,
		)
	} else {
		log.Info("Kafka alert ledger disabled")
	}

	// The WebSocket hub is created ahead of the API server so threshold
	// alerts can fan out to it through the dispatcher.
	hub := api.NewHub(cfg.WebSocket, log, m)
	dispatcher := alerts.NewDispatcher(hub, alertLedger, log, m)

	coordinatorCfg := consumption.Config{
		Devices:  deviceRepo,
		Users:    directoryClient,
		Samples:  monitoringClient,
		Alerts:   dispatcher,
		Location: loc,
		Logger:   log,
		Metrics:  m,
	}
	if influxClient != nil {
		coordinatorCfg.History = influxClient
	}
	coordinator := consumption.NewCoordinator(coordinatorCfg)

	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Devices:     deviceRepo,
		Coordinator: coordinator,
		MQTT:        mqttClient,
		Metrics:     m,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return startAndWait(ctx, cfg, log, deviceRepo, coordinator, mqttClient, apiServer, db, influxClient)
}

// startAndWait finishes wiring, starts the servers, and blocks until shutdown.
func startAndWait(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	deviceRepo *device.SQLiteRepository,
	coordinator *consumption.Coordinator,
	mqttClient *mqtt.Client,
	apiServer *api.Server,
	db *database.DB,
	influxClient *influxdb.Client,
) error {
	// Inbound message-bus commands from other services
	handlers, err := commands.New(deviceRepo, coordinator, log)
	if err != nil {
		return fmt.Errorf("creating command handlers: %w", err)
	}
	rpcServer := rpc.NewServer(mqttClient, cfg.RPC, log)
	handlers.Register(rpcServer)
	if err := rpcServer.Start(); err != nil {
		return fmt.Errorf("starting rpc server: %w", err)
	}
	log.Info("rpc command server listening", "prefix", cfg.RPC.RequestPrefix)

	// HTTP API
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VOLTWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VOLTWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
