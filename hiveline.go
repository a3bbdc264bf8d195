package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hiveline/hiveline/agent"
	"github.com/hiveline/hiveline/api"
	"github.com/hiveline/hiveline/audit"
	"github.com/hiveline/hiveline/cfg"
	"github.com/hiveline/hiveline/ddl"
	"github.com/hiveline/hiveline/notify"
	"github.com/hiveline/hiveline/queue"
	"github.com/hiveline/hiveline/remote"
	"github.com/hiveline/hiveline/telemetry"

	// Drivers for the remote SQL endpoint, selected by endpoint.driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/trinodb/trino-go-client/trino"
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Uint64("agent_id", cfg.Config.AgentID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("Hiveline - Catalog DDL Replication Agent")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	// Remote endpoint connection
	dsn, err := cfg.Config.Endpoint.DSN()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build endpoint DSN")
		return
	}
	manager := remote.NewManager(&remote.SQLConnector{
		Driver: cfg.Config.Endpoint.Driver,
		DSN:    dsn,
	})
	defer manager.Close()

	// The worker reconnects on demand, so a cold endpoint at startup is not
	// fatal.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := manager.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial endpoint connection failed, worker will reconnect")
	} else {
		log.Info().Str("url", cfg.Config.Endpoint.URL).Msg("Connected to remote endpoint")
	}
	cancel()

	// Notifications
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Config.Notify.SlackWebhook != "" {
		notifier = notify.NewSlackNotifier(cfg.Config.Notify.SlackWebhook, cfg.Config.Notify.Channel)
		log.Info().Str("channel", cfg.Config.Notify.Channel).Msg("Slack notifications enabled")
	}
	if err := notifier.Send(notify.FormatStartup(cfg.Config)); err != nil {
		log.Warn().Err(err).Msg("Failed to deliver startup notification")
	}

	// Audit trail
	trail, err := audit.NewTrail(cfg.Config.AgentID, cfg.Config.AuditSinks)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit trail")
		return
	}
	defer trail.Close()

	// Replication pipeline
	q := queue.New()
	listener := agent.NewSyncListener(&cfg.Config.Sync, ddl.BasicGenerator{}, q)
	processor := agent.NewProcessor(q, manager, notifier, trail, &cfg.Config.Sync)
	processor.Start()
	defer processor.Stop()

	collector := telemetry.NewMetricsCollector(q, 5*time.Second)
	collector.Start()
	defer collector.Stop()

	// Event receiver
	receiver := api.NewServer(
		fmt.Sprintf("%s:%d", cfg.Config.Listener.BindAddress, cfg.Config.Listener.Port),
		api.NewEventHandlers(listener, q),
	)
	receiver.Start()

	// Metrics endpoint
	var metricsSrv *http.Server
	if handler := telemetry.GetMetricsHandler(); handler != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	log.Info().
		Uint64("agent_id", cfg.Config.AgentID).
		Int("listener_port", cfg.Config.Listener.Port).
		Str("endpoint", cfg.Config.Endpoint.URL).
		Msg("Agent is operational")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := receiver.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Event receiver shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Metrics endpoint shutdown failed")
		}
	}

	// Close the endpoint connection before stopping the worker: an in-flight
	// statement fails immediately and classifies as a connectivity failure,
	// so Stop never waits on a hung endpoint.
	if err := manager.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing endpoint connection failed")
	}
	processor.Stop()
	if dropped := q.Len(); dropped > 0 {
		log.Warn().Int("dropped", dropped).Msg("Discarding queued statements on shutdown")
	}
}
