// Package app wires the client's services onto the simulated backend and
// the in-memory scene.
package app

import (
	"context"
	"net/http"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	"cloudslam/internal/core/services"
	"cloudslam/internal/infrastructure/backend/simulated"
	"cloudslam/internal/infrastructure/monitoring"
	"cloudslam/internal/infrastructure/remote"
	"cloudslam/internal/infrastructure/repositories"
	"cloudslam/internal/infrastructure/scene"
	"cloudslam/pkg/config"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/retry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Client is the assembled client. Everything except Router and Health runs
// on the scheduler's goroutine.
type Client struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	Scheduler *services.Scheduler
	Session   *services.SessionService
	Remote    *services.ClientService
	POIs      *services.POIService
	Maps      *services.MapService
	Metrics   *services.MetricsService
	Collector *monitoring.PrometheusCollector
	Health    *monitoring.HealthChecker
	Backend   *simulated.Backend
	Graph     *scene.Graph
	Renderer  *scene.Renderer
	Preview   *scene.Preview

	repos *repositories.RepositoryFactory
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	log = logger.OrNop(log)

	c := &Client{
		cfg:       cfg,
		logger:    log,
		Scheduler: services.NewScheduler(),
		Metrics:   services.NewMetricsService(),
		Collector: monitoring.NewPrometheusCollector(),
		Health:    monitoring.NewHealthChecker(),
		Graph:     scene.NewGraph(),
		Renderer:  scene.NewRenderer(),
		Preview:   scene.NewPreview(log.Named("preview")),
		repos:     repositories.NewRepositoryFactory(cfg, log),
	}
	metrics := services.MultiRecorder{c.Metrics, c.Collector}

	c.Backend = simulated.New(simulated.Options{
		OpenDelay:      cfg.Simulator.OpenDelay,
		TrackingDelay:  cfg.Simulator.TrackingDelay,
		FailAfter:      cfg.Simulator.FailAfter,
		PreviewEnabled: cfg.Simulator.PreviewEnabled,
		Logger:         log.Named("backend"),
	})

	reader := services.NewPoseReader(c.Graph.Camera(), metrics)
	c.Session = services.NewSessionService(c.Backend, c.Scheduler, reader, services.SessionOptions{
		Config:     cfg.Session,
		Compositor: c.Preview,
		Metrics:    metrics,
		Logger:     log.Named("session"),
	})
	c.POIs = services.NewPOIService(c.Graph, metrics, log.Named("poi"))
	c.Maps = services.NewMapService(c.Renderer, services.MapOptions{
		BatchSize:  cfg.Map.BatchSize,
		PointScale: cfg.Map.PointScale,
		Metrics:    metrics,
		Logger:     log.Named("map"),
	})

	configs := services.NewConfigService(c.repos.CreateSettingsRepository(), cfg.Session, log.Named("config"))
	c.Remote = services.NewClientService(c.Session, configs, c.POIs, c.Maps, remote.NewClient(remoteOptions(cfg), log.Named("remote")), c.Scheduler, services.ClientOptions{
		FetchPOIs:    cfg.Client.FetchPOIs,
		FetchMap:     cfg.Client.FetchMap,
		FetchTimeout: cfg.Client.FetchTimeout,
		Metrics:      metrics,
		Logger:       log.Named("client"),
	})

	c.Session.Subscribe(ports.SessionObserverFunc(c.logEvent))
	c.Scheduler.AddUpdater(c.Session)
	c.Scheduler.AddUpdater(c.Maps)
	c.Scheduler.AddUpdater(c.Renderer)

	c.Health.AddSettingsCheck(c.repos, 2*time.Second)
	c.Health.AddSessionCheck(
		func() domain.SessionState { return c.Metrics.Snapshot().State },
		func() domain.TrackingStatus { return c.Metrics.Snapshot().Status },
	)
	return c
}

func remoteOptions(cfg *config.Config) remote.Options {
	opts := remote.DefaultOptions()
	opts.HTTPTimeout = cfg.Remote.HTTPTimeout
	opts.POIPath = cfg.Remote.POIPath
	opts.StreamReadTimeout = cfg.Remote.StreamReadTimeout
	opts.MaxMessageBytes = cfg.Remote.MaxMessageBytes

	opts.Retry = retry.DefaultConfig()
	opts.Retry.MaxAttempts = cfg.Remote.Retry.MaxAttempts
	opts.Retry.InitialDelay = cfg.Remote.Retry.InitialDelay
	opts.Retry.MaxDelay = cfg.Remote.Retry.MaxDelay

	opts.Breaker.FailureThreshold = cfg.Remote.CircuitBreaker.FailureThreshold
	opts.Breaker.Timeout = cfg.Remote.CircuitBreaker.Timeout
	return opts
}

func (c *Client) logEvent(e domain.SessionEvent) {
	switch e.Type {
	case domain.EventError:
		c.logger.Errorw("session event", "type", e.Type, "message", e.Message)
	case domain.EventTrackingStatusChanged:
		c.logger.Infow("session event", "type", e.Type, "status", e.Status)
	default:
		c.logger.Infow("session event", "type", e.Type)
	}
}

// Init restores persisted settings, switches to the configured address when
// it differs from the remembered one and optionally starts the session.
// Main loop only.
func (c *Client) Init(ctx context.Context) error {
	if err := c.Remote.Init(ctx); err != nil {
		return err
	}
	if c.cfg.Client.ConfigAddress != "" && c.cfg.Client.ConfigAddress != c.Remote.Address() {
		if err := c.Remote.UpdateConfigAddress(ctx, c.cfg.Client.ConfigAddress); err != nil {
			return err
		}
	}
	if c.cfg.Client.AutoStart {
		if err := c.Session.Start(ctx); err != nil {
			c.logger.Warnw("session auto start failed", "error", err)
		}
	}
	return nil
}

// Refresh refetches everything from the current config address.
func (c *Client) Refresh(ctx context.Context) error {
	address := c.Remote.Address()
	if address == "" {
		return nil
	}
	return c.Remote.UpdateConfigAddress(ctx, address)
}

// Run ticks the main loop until ctx is done, then stops the session and
// drains its close callback.
func (c *Client) Run(ctx context.Context) {
	c.Scheduler.Post(func() {
		if err := c.Init(ctx); err != nil {
			c.logger.Errorw("client init failed", "error", err)
		}
	})
	c.Scheduler.Run(ctx, c.cfg.TickInterval())
	c.shutdown()
}

func (c *Client) shutdown() {
	if err := c.Remote.Pause(); err != nil {
		c.logger.Warnw("failed to stop session", "error", err)
	}
	c.Scheduler.Tick()
	c.Remote.Wait()
	c.Scheduler.Tick()

	if err := c.repos.Close(); err != nil {
		c.logger.Warnw("failed to close settings store", "error", err)
	}
}

// Router serves /metrics and /health.
func (c *Client) Router() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(c.Collector.Handler()))
	router.GET("/health", func(gc *gin.Context) {
		status := c.Health.CheckAll(gc.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		gc.JSON(code, status)
	})
	return router
}
