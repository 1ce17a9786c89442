package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/utils"

	"go.uber.org/zap"
)

// Network flow names used in logs and metrics.
const (
	FlowConfig = "config"
	FlowPOI    = "poi"
	FlowMap    = "map"
)

type ClientOptions struct {
	FetchPOIs    bool
	FetchMap     bool
	FetchTimeout time.Duration
	Metrics      ports.MetricsRecorder
	Logger       *zap.SugaredLogger
}

// ClientService ties the session to the remote service: it restores
// persisted settings, runs the config, POI and map flows and applies their
// results on the main loop.
type ClientService struct {
	session    *SessionService
	configs    *ConfigService
	pois       *POIService
	maps       *MapService
	remote     ports.RemoteClient
	dispatcher ports.Dispatcher
	metrics    ports.MetricsRecorder
	log        *logger.ContextLogger
	opts       ClientOptions

	mu      sync.RWMutex
	address string

	wg sync.WaitGroup
}

func NewClientService(
	session *SessionService,
	configs *ConfigService,
	pois *POIService,
	maps *MapService,
	remote ports.RemoteClient,
	dispatcher ports.Dispatcher,
	opts ClientOptions,
) *ClientService {
	return &ClientService{
		session:    session,
		configs:    configs,
		pois:       pois,
		maps:       maps,
		remote:     remote,
		dispatcher: dispatcher,
		metrics:    orDefaultMetrics(opts.Metrics),
		log:        logger.NewContextLogger(opts.Logger),
		opts:       opts,
	}
}

// Init restores the remembered address and the persisted session config and
// starts a POI fetch when an address is known. Main loop only.
func (c *ClientService) Init(ctx context.Context) error {
	cfg, err := c.configs.Load(ctx)
	switch {
	case err == nil:
		c.session.SetConfig(cfg)
	case errors.Is(err, domain.ErrSettingsNotFound):
		c.log.Logger().Infow("no persisted session config, using defaults")
	default:
		return err
	}

	address, err := c.configs.LoadAddress(ctx)
	if err != nil {
		c.log.Logger().Warnw("failed to load config address", "error", err)
	}
	c.setAddress(address)

	if address != "" && c.opts.FetchPOIs {
		c.FetchPOIs(ctx)
	}
	return nil
}

// Address returns the current config address.
func (c *ClientService) Address() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.address
}

func (c *ClientService) setAddress(address string) {
	c.mu.Lock()
	c.address = address
	c.mu.Unlock()
}

// UpdateConfigAddress remembers a new config address and refreshes config,
// POIs and map from it. The flows run concurrently.
func (c *ClientService) UpdateConfigAddress(ctx context.Context, address string) error {
	address = utils.NormalizeAddress(address)
	if address == "" {
		return apperrors.NewConfigurationError(domain.ErrConfigAddressEmpty, "config address is empty")
	}

	if err := c.configs.SaveAddress(ctx, address); err != nil {
		c.log.Logger().Warnw("failed to remember config address", "address", address, "error", err)
	}
	c.setAddress(address)
	c.log.Logger().Infow("config address updated", "address", address)

	c.FetchConfig(ctx)
	if c.opts.FetchPOIs {
		c.FetchPOIs(ctx)
	}
	if c.opts.FetchMap {
		c.FetchMap(ctx)
	}
	return nil
}

// FetchConfig fetches, persists and applies the session config.
func (c *ClientService) FetchConfig(ctx context.Context) {
	c.runFlow(ctx, FlowConfig, c.remote.FetchConfig, func(ctx context.Context, data []byte) error {
		cfg, err := c.configs.Parse(data)
		if err != nil {
			return err
		}
		if err := c.configs.Save(ctx, cfg); err != nil {
			c.log.WithContext(ctx).Warnw("session config not persisted", "error", err)
		}
		c.dispatcher.Post(func() {
			if !c.session.SetConfig(cfg) {
				c.log.WithContext(ctx).Infow("session config will apply after the session closes")
			}
		})
		return nil
	})
}

// FetchPOIs receives a POI snapshot and places it on the main loop.
func (c *ClientService) FetchPOIs(ctx context.Context) {
	c.runFlow(ctx, FlowPOI, c.remote.ReceivePOIs, func(ctx context.Context, data []byte) error {
		shapes, err := ParsePOIs(data)
		if err != nil {
			return err
		}
		c.dispatcher.Post(func() { c.pois.Place(shapes) })
		return nil
	})
}

// FetchMap fetches the map snapshot and swaps in the new batches.
func (c *ClientService) FetchMap(ctx context.Context) {
	c.runFlow(ctx, FlowMap, c.remote.FetchMap, func(_ context.Context, data []byte) error {
		_, err := c.maps.LoadMapFromJSON(data)
		return err
	})
}

type fetchFunc func(ctx context.Context, address string) ([]byte, error)

func (c *ClientService) runFlow(ctx context.Context, flow string, fetch fetchFunc, apply func(context.Context, []byte) error) {
	address := c.Address()
	ctx = logger.WithRequestID(logger.WithFlow(ctx, flow), utils.NewRequestID())
	log := c.log.WithContext(ctx)

	if address == "" {
		log.Warnw("skipping fetch, no config address")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if c.opts.FetchTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
			defer cancel()
		}

		start := time.Now()
		data, err := fetch(ctx, address)
		if err == nil {
			err = apply(ctx, data)
		}
		c.metrics.RecordFetch(flow, time.Since(start), err)

		if err != nil {
			log.Errorw("fetch failed, keeping previous state", "address", address, "error", err)
			return
		}
		log.Infow("fetch complete", "address", address, "bytes", len(data), "duration", time.Since(start))
	}()
}

// Wait blocks until every outstanding fetch has finished.
func (c *ClientService) Wait() {
	c.wg.Wait()
}

// Toggle starts the session when it is closed and stops it otherwise.
func (c *ClientService) Toggle(ctx context.Context) error {
	if c.session.IsRunning() {
		return c.session.Stop()
	}
	return c.session.Start(ctx)
}

// Pause stops the session when the host application is paused.
func (c *ClientService) Pause() error {
	return c.session.Stop()
}
