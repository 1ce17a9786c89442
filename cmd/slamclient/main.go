package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudslam/internal/app"
	"cloudslam/pkg/config"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/tracing"
)

func loadConfig() (*config.Config, string) {
	if path := os.Getenv("CLOUDSLAM_CONFIG_FILE"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
		return cfg, path
	}

	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/cloudslam/config.yaml",
		"config.yaml",
	}
	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", path, err)
			os.Exit(1)
		}
		return cfg, path
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg, "defaults"
}

func main() {
	cfg, source := loadConfig()

	zapLogger := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()
	log.Infow("configuration loaded", "source", source)

	tp, err := tracing.Init(cfg.Tracing)
	if err != nil {
		log.Fatalw("failed to initialise tracing", "error", err)
	}

	client := app.NewClient(cfg, log)

	var metricsSrv *http.Server
	if cfg.Monitoring.PrometheusEnabled {
		metricsSrv = &http.Server{
			Addr:              cfg.Monitoring.PrometheusAddress,
			Handler:           client.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Infow("serving metrics", "address", cfg.Monitoring.PrometheusAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGUSR1 toggles the session, SIGHUP refetches from the config address.
	controls := make(chan os.Signal, 1)
	signal.Notify(controls, syscall.SIGUSR1, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-controls:
				log.Infow("received control signal", "signal", sig)
				client.Scheduler.Post(func() {
					var err error
					if sig == syscall.SIGUSR1 {
						err = client.Remote.Toggle(ctx)
					} else {
						err = client.Refresh(ctx)
					}
					if err != nil {
						log.Warnw("control signal failed", "signal", sig, "error", err)
					}
				})
			}
		}
	}()

	log.Infow("starting CloudSLAM client", "tick_rate", cfg.Client.TickRate, "config_address", cfg.Client.ConfigAddress)
	client.Run(ctx)
	log.Info("main loop stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("error during metrics server shutdown", "error", err)
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during tracer shutdown", "error", err)
	}
	log.Info("CloudSLAM client stopped")
}
