package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/db"
	"github.com/thatsimonsguy/tstat-bridge/internal/api"
	"github.com/thatsimonsguy/tstat-bridge/internal/bridge"
	"github.com/thatsimonsguy/tstat-bridge/internal/config"
	"github.com/thatsimonsguy/tstat-bridge/internal/datadog"
	"github.com/thatsimonsguy/tstat-bridge/internal/influxdb"
	"github.com/thatsimonsguy/tstat-bridge/internal/logging"
	"github.com/thatsimonsguy/tstat-bridge/internal/messaging"
	"github.com/thatsimonsguy/tstat-bridge/internal/notifications"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
	"github.com/thatsimonsguy/tstat-bridge/internal/transport"
	"github.com/thatsimonsguy/tstat-bridge/system/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("uri", cfg.URI).
		Str("device", cfg.IP).
		Dur("sample_interval", cfg.SampleInterval()).
		Msg("Starting thermostat bridge")

	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid point table")
	}

	hooks := &shutdown.Hooks{}

	device := proxy.New(registry,
		transport.NewHTTP(transport.Config{
			Host:     cfg.IP,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  cfg.RequestTimeout(),
		}),
		proxy.WithDevice(cfg.URI),
	)

	mqttClient, err := messaging.Connect(cfg.MQTT)
	if err != nil {
		log.Fatal().Err(err).Str("broker", cfg.MQTT.Broker).Msg("Failed to connect to MQTT broker")
	}
	hooks.Add("mqtt", func(context.Context) error { return mqttClient.Close() })
	publisher := messaging.NewBridge(mqttClient, cfg.URI, registry)

	var recorders []bridge.Recorder

	var history *sql.DB
	if cfg.DBPath != "" {
		history, err = db.Open(cfg.DBPath)
		if err != nil {
			shutdown.ShutdownWithError(hooks, err, "Failed to open history database")
		}
		hooks.Add("history", func(context.Context) error { return history.Close() })
		recorders = append(recorders, db.NewRecorder(history))
	}

	influx, err := influxdb.Connect(cfg.InfluxDB, cfg.URI)
	switch {
	case err == nil:
		hooks.Add("influxdb", func(context.Context) error { return influx.Close() })
		recorders = append(recorders, influx)
	case errors.Is(err, influxdb.ErrDisabled):
		log.Debug().Msg("InfluxDB disabled")
	default:
		log.Warn().Err(err).Msg("InfluxDB unavailable, continuing without it")
	}

	if cfg.Datadog.Enabled {
		metrics, err := datadog.New(cfg.Datadog)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		} else {
			hooks.Add("datadog", func(context.Context) error { return metrics.Close() })
			recorders = append(recorders, metrics)
		}
	}

	if notifier := notifications.New(cfg.NtfyTopic); notifier.Enabled() {
		recorders = append(recorders, notifications.NewWatch(notifier, cfg.URI, cfg.UnreachableCycles))
	}

	loop := bridge.New(device, publisher, cfg.SampleInterval(), recorders...)
	if err := publisher.SubscribeCommands(loop.Submit); err != nil {
		shutdown.ShutdownWithError(hooks, err, "Failed to subscribe to command slot")
	}

	if cfg.APIPort != 0 {
		server := api.NewServer(registry, loop, history)
		hooks.Add("api", server.Shutdown)
		go func() {
			if err := server.Start(cfg.APIPort); err != nil {
				log.Error().Err(err).Msg("REST API server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop.Run(ctx)

	shutdown.Shutdown(hooks)
}
