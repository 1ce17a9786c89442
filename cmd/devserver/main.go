package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudslam/internal/infrastructure/devserver"
	"cloudslam/internal/infrastructure/monitoring"
	"cloudslam/pkg/config"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := "configs/config.yaml"
	if path := os.Getenv("CLOUDSLAM_CONFIG_FILE"); path != "" {
		configPath = path
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = "cloudslam-devserver"
	tp, err := tracing.Init(tracingCfg)
	if err != nil {
		log.Fatalw("failed to initialise tracing", "error", err)
	}

	snapshots, err := devserver.LoadSnapshots(devserver.SnapshotOptions{
		Session:       cfg.Session,
		ConfigFile:    cfg.DevServer.ConfigFile,
		POIFile:       cfg.DevServer.POIFile,
		MapFile:       cfg.DevServer.MapFile,
		DemoPOIs:      cfg.DevServer.DemoPOIs,
		DemoMapPoints: cfg.DevServer.DemoMapPoints,
		Seed:          uint64(time.Now().UnixNano()),
	})
	if err != nil {
		log.Fatalw("failed to load snapshots", "error", err)
	}

	socket := devserver.NewPOISocket(snapshots, cfg.DevServer.FragmentSize, cfg.DevServer.WriteTimeout, log.Named("poi"))
	var metrics http.Handler
	if cfg.Monitoring.PrometheusEnabled {
		metrics = promhttp.Handler()
	}
	handler := devserver.NewHandler(snapshots, socket, monitoring.NewHealthChecker(), metrics)
	router := devserver.NewRouter(cfg, handler, log)

	srv := &http.Server{
		Addr:         cfg.DevServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.DevServer.ReadTimeout,
		WriteTimeout: cfg.DevServer.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting CloudSLAM dev server",
			"address", cfg.DevServer.Address,
			"fragment_size", cfg.DevServer.FragmentSize,
			"config_bytes", len(snapshots.Config()),
			"poi_bytes", len(snapshots.POIs()),
			"map_bytes", len(snapshots.Map()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DevServer.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during tracer shutdown", "error", err)
	}
	log.Info("CloudSLAM dev server stopped")
}
