package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vannot/vannot/internal/cache"
	"github.com/vannot/vannot/internal/config"
	"github.com/vannot/vannot/internal/database"
	"github.com/vannot/vannot/internal/index"
	"github.com/vannot/vannot/internal/logging"
	"github.com/vannot/vannot/internal/merge"
	"github.com/vannot/vannot/internal/metrics"
	"github.com/vannot/vannot/internal/monitor"
	"github.com/vannot/vannot/internal/notify"
	"github.com/vannot/vannot/internal/otel"
	"github.com/vannot/vannot/internal/queue"
	"github.com/vannot/vannot/internal/server"
	"github.com/vannot/vannot/internal/service"
	"github.com/vannot/vannot/internal/store"
	"github.com/vannot/vannot/internal/token"
	"github.com/vannot/vannot/internal/vtt"
	"github.com/vannot/vannot/internal/worker"
)

func newServeCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configDir)
		},
	}
}

func runServe(configDir string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	// OTel provider first so the slog bridge can hang off it
	otelProvider, err := otel.New(otel.Config{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  "vannot",
		BatchTimeout: 5 * time.Second,
		LogWriter:    logging.FileWriter(logsDir, "vannot.otel"),
		Endpoint:     viper.GetString("otel.endpoint"),
	})
	if err != nil {
		return fmt.Errorf("initializing OTel: %w", err)
	}

	logManager := logging.NewSlogManager()
	logManager.Setup(
		logging.FileWriter(logsDir, "vannot"),
		viper.GetString("logLevel"),
		otelProvider.LoggerProvider(),
	)
	logger := logManager.Logger()

	// index database; the server runs degraded without it
	zlog := zerolog.New(logging.FileWriter(logsDir, "vannot.db")).With().Timestamp().Logger()
	dbManager := database.NewManager(zlog)
	var repo *index.Repository
	if err := dbManager.Connect(); err != nil {
		logger.Error("Index database unavailable, continuing without search", "error", err)
	} else if err := dbManager.Setup(); err != nil {
		logger.Error("Index migration failed, continuing without search", "error", err)
	} else {
		repo = index.NewRepository(dbManager.DB, logger)
		defer dbManager.Close()
	}

	backend, err := store.NewBackend(store.Config{
		Type:    "fs",
		DataDir: viper.GetString("dataDir"),
	}, logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer backend.Close()

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return fmt.Errorf("creating metrics recorder: %w", err)
	}

	hub := notify.NewHub(logger)
	jobs := queue.New[service.IndexJob]()
	containerCache := cache.NewContainerCache()

	svc := service.New(
		backend,
		vtt.New(logger, token.NewRand()),
		merge.New(logger),
		containerCache,
		recorder,
		jobs,
		hub,
		logger,
	)
	svc.CompressProjects = viper.GetBool("project.compressOutput")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// background index worker
	codec := vtt.New(logger, token.NewRand())
	if repo != nil {
		workerManager := worker.NewManager(worker.Dependencies{
			Jobs:    jobs,
			Repo:    repo,
			Backend: backend,
			Codec:   codec,
			Logger:  logger,
		})
		go workerManager.Run(ctx)
	}

	// usage telemetry
	if viper.GetBool("influx.enabled") {
		influxLog := zerolog.New(logging.FileWriter(logsDir, "vannot.influx")).With().Timestamp().Logger()
		influxManager := monitor.NewInfluxManager(influxLog,
			logsDir+"/influx_backup.gz")
		if err := influxManager.Connect(); err != nil {
			logger.Warn("Influx telemetry disabled", "error", err)
		} else {
			mon := monitor.NewService(monitor.Dependencies{
				Influx:     influxManager,
				LogManager: logManager,
				Cache:      containerCache,
				Jobs:       jobs,
				Hub:        hub,
			})
			if err := mon.Start(); err != nil {
				logger.Warn("Could not start usage monitor", "error", err)
			}
			defer mon.Stop()
			defer influxManager.Close()
		}
	}

	srv := server.New(server.Config{
		Host:          viper.GetString("server.host"),
		Port:          viper.GetInt("server.port"),
		WSPort:        viper.GetInt("server.wsPort"),
		CORSOrigins:   viper.GetString("server.corsOrigins"),
		UploadLimitMB: viper.GetInt("server.uploadLimitMB"),
	}, svc, repo, hub, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := logManager.Flush(shutdownCtx); err != nil {
		logger.Error("Log flush error", "error", err)
	}
	if err := otelProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("OTel shutdown error", "error", err)
	}
	return nil
}
