package devserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"cloudslam/internal/infrastructure/middleware"
	"cloudslam/internal/infrastructure/monitoring"
	"cloudslam/pkg/config"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxUploadBytes = 16 << 20

// Handler serves the client's remote endpoints: the session config and map
// snapshot over HTTP and the POI snapshot over the root WebSocket.
type Handler struct {
	snapshots *Snapshots
	socket    *POISocket
	health    *monitoring.HealthChecker
	metrics   http.Handler
	startTime time.Time
}

func NewHandler(snapshots *Snapshots, socket *POISocket, health *monitoring.HealthChecker, metrics http.Handler) *Handler {
	if health == nil {
		health = monitoring.NewHealthChecker()
	}
	return &Handler{
		snapshots: snapshots,
		socket:    socket,
		health:    health,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/", gin.WrapH(h.socket))

	client := router.Group("/client")
	{
		client.GET("/config", h.GetConfig)
		client.GET("/map", h.GetMap)
		client.PUT("/pois", h.PutPOIs)
	}

	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
}

func (h *Handler) GetConfig(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", h.snapshots.Config())
}

func (h *Handler) GetMap(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", h.snapshots.Map())
}

// PutPOIs replaces the POI snapshot pushed to subsequent connections.
func (h *Handler) PutPOIs(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		c.Error(apperrors.NewInvalidInputError("failed to read body"))
		return
	}
	if err := h.snapshots.SetPOIs(data); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := h.health.CheckAll(ctx)
	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status.Status,
		"checks":      status.Checks,
		"timestamp":   status.Timestamp,
		"uptime":      time.Since(h.startTime).String(),
		"pois_served": h.socket.Served(),
	})
}

// NewRouter builds the gin engine with the dev server middleware chain.
func NewRouter(cfg *config.Config, handler *Handler, log *zap.SugaredLogger) *gin.Engine {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	log = logger.OrNop(log)
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(),
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.ErrorHandlerMiddleware(log),
	)
	handler.SetupRoutes(router)
	return router
}
