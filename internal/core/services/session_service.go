package services

import (
	"context"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
	apperrors "cloudslam/pkg/errors"
	"cloudslam/pkg/logger"
	"cloudslam/pkg/utils"

	"go.uber.org/zap"
)

// SessionService owns the tracking session lifecycle. Start, Stop, SetConfig
// and Update must run on the main loop; backend callbacks are re-posted to
// the dispatcher and applied on the next tick.
type SessionService struct {
	backend    ports.SensingBackend
	dispatcher ports.Dispatcher
	compositor ports.PreviewCompositor
	reader     *PoseReader
	metrics    ports.MetricsRecorder
	logger     *zap.SugaredLogger

	observers []ports.SessionObserver

	state         domain.SessionState
	status        domain.TrackingStatus
	config        domain.SessionConfig
	pendingConfig *domain.SessionConfig
	previewActive bool
	sessionID     string
	// generation is bumped on every Start; callbacks from older sessions
	// are dropped when they reach the main loop.
	generation uint64
}

type SessionOptions struct {
	Config     domain.SessionConfig
	Compositor ports.PreviewCompositor
	Metrics    ports.MetricsRecorder
	Logger     *zap.SugaredLogger
}

func NewSessionService(backend ports.SensingBackend, dispatcher ports.Dispatcher, reader *PoseReader, opts SessionOptions) *SessionService {
	s := &SessionService{
		backend:    backend,
		dispatcher: dispatcher,
		compositor: opts.Compositor,
		reader:     reader,
		metrics:    orDefaultMetrics(opts.Metrics),
		logger:     logger.OrNop(opts.Logger),
		config:     opts.Config,
		state:      domain.SessionClosed,
	}
	s.metrics.RecordSessionState(s.state)
	return s
}

// Subscribe registers an observer. Main loop only.
func (s *SessionService) Subscribe(o ports.SessionObserver) {
	s.observers = append(s.observers, o)
}

func (s *SessionService) State() domain.SessionState {
	return s.state
}

func (s *SessionService) TrackingStatus() domain.TrackingStatus {
	return s.status
}

func (s *SessionService) Config() domain.SessionConfig {
	return s.config
}

// IsRunning is true in every state except Closed.
func (s *SessionService) IsRunning() bool {
	return s.state != domain.SessionClosed
}

// Start opens a session with the current config. It is a no-op while running
// and fails without a state change when the server address is unset.
func (s *SessionService) Start(ctx context.Context) error {
	if s.IsRunning() {
		return nil
	}

	if s.config.ServerIP == "" {
		err := apperrors.NewConfigurationError(domain.ErrServerAddressEmpty,
			"session server address is empty; set server_ip in the session config")
		s.logger.Warnw("session start rejected", "error", err)
		msg := err.Error()
		s.dispatcher.Post(func() {
			s.emit(domain.SessionEvent{Type: domain.EventError, Message: msg})
		})
		return err
	}

	s.generation++
	gen := s.generation
	s.sessionID = utils.NewSessionID()
	s.setState(domain.SessionOpening)
	s.logger.Infow("opening session",
		"session_id", s.sessionID,
		"server_ip", s.config.ServerIP,
		"udp_port", s.config.UDPPort,
		"websocket_port", s.config.WebsocketPort,
	)

	if err := s.backend.Open(ctx, s.config, &sessionCallbacks{s: s, gen: gen}); err != nil {
		backendErr := apperrors.NewBackendError(err, "failed to open sensing backend")
		s.post(gen, func() { s.handleError(backendErr) })
		return backendErr
	}
	return nil
}

// Stop requests backend shutdown. The pose buffer handle is released
// immediately so no later tick can read it. No-op unless running.
func (s *SessionService) Stop() error {
	if s.state == domain.SessionClosed || s.state == domain.SessionClosing {
		return nil
	}

	s.setState(domain.SessionClosing)
	s.reader.SetBuffer(nil)
	s.logger.Infow("closing session", "session_id", s.sessionID)

	if err := s.backend.Close(); err != nil {
		backendErr := apperrors.NewBackendError(err, "failed to close sensing backend")
		s.post(s.generation, func() { s.handleError(backendErr) })
		return backendErr
	}
	return nil
}

// SetConfig replaces the session config. While running the config is kept
// pending and applied on the next transition to Closed; the return value
// reports whether it was applied immediately.
func (s *SessionService) SetConfig(cfg domain.SessionConfig) bool {
	if !s.IsRunning() {
		s.config = cfg
		s.pendingConfig = nil
		return true
	}
	s.pendingConfig = &cfg
	s.logger.Infow("session config deferred until close", "state", s.state)
	return false
}

// Update runs once per tick after queued callbacks have been applied.
func (s *SessionService) Update() {
	s.metrics.RecordTick()
	s.reader.Update()
}

func (s *SessionService) handleOpen() {
	if s.state != domain.SessionOpening {
		s.logger.Debugw("ignoring backend open", "state", s.state)
		return
	}
	s.setState(domain.SessionOpen)
	s.setStatus(domain.TrackingNone)
	s.reader.SetBuffer(s.backend.PoseBuffer())
	s.logger.Infow("session open", "session_id", s.sessionID, "pose_buffer", s.reader.Attached())
	s.emit(domain.SessionEvent{Type: domain.EventOpen, Status: s.status})
}

func (s *SessionService) handleStatusChanged(code int) {
	if s.state != domain.SessionOpen {
		s.logger.Debugw("ignoring tracking status outside open session", "code", code, "state", s.state)
		return
	}
	status := domain.TrackingStatusFromCode(code)
	s.setStatus(status)
	s.emit(domain.SessionEvent{Type: domain.EventTrackingStatusChanged, Status: status})
}

func (s *SessionService) handlePreviewReady(handle domain.PreviewHandle) {
	if s.compositor == nil || (s.state != domain.SessionOpening && s.state != domain.SessionOpen) {
		return
	}
	if err := s.compositor.Attach(handle); err != nil {
		s.logger.Warnw("failed to attach preview", "error", err)
		return
	}
	s.previewActive = true
}

func (s *SessionService) handleClose() {
	if s.state == domain.SessionClosed {
		return
	}
	s.cleanup()
	s.emit(domain.SessionEvent{Type: domain.EventClose})
}

// handleError surfaces err and then performs the close cleanup.
func (s *SessionService) handleError(err error) {
	if apperrors.GetAppError(err) == nil {
		err = apperrors.NewBackendError(err, "sensing backend fault")
	}
	s.logger.Errorw("session error", "session_id", s.sessionID, "state", s.state, "error", err)
	s.emit(domain.SessionEvent{Type: domain.EventError, Message: err.Error()})
	s.handleClose()
}

func (s *SessionService) cleanup() {
	s.reader.SetBuffer(nil)
	if s.previewActive {
		s.compositor.Detach()
		s.previewActive = false
	}
	s.setState(domain.SessionClosed)
	s.setStatus(domain.TrackingNone)
	if s.pendingConfig != nil {
		s.config = *s.pendingConfig
		s.pendingConfig = nil
		s.logger.Infow("applied deferred session config", "server_ip", s.config.ServerIP)
	}
	s.logger.Infow("session closed", "session_id", s.sessionID)
}

func (s *SessionService) setState(state domain.SessionState) {
	s.state = state
	s.metrics.RecordSessionState(state)
}

func (s *SessionService) setStatus(status domain.TrackingStatus) {
	s.status = status
	s.metrics.RecordTrackingStatus(status)
}

func (s *SessionService) emit(event domain.SessionEvent) {
	for _, o := range s.observers {
		o.OnSessionEvent(event)
	}
}

// post queues fn for the next tick unless a newer session has started by then.
func (s *SessionService) post(gen uint64, fn func()) {
	s.dispatcher.Post(func() {
		if gen != s.generation {
			s.logger.Debugw("dropping callback from previous session", "generation", gen, "current", s.generation)
			return
		}
		fn()
	})
}

// sessionCallbacks re-posts backend callbacks of one session onto the main loop.
type sessionCallbacks struct {
	s   *SessionService
	gen uint64
}

func (c *sessionCallbacks) OnOpen() {
	c.s.post(c.gen, c.s.handleOpen)
}

func (c *sessionCallbacks) OnClose() {
	c.s.post(c.gen, c.s.handleClose)
}

func (c *sessionCallbacks) OnError(err error) {
	c.s.post(c.gen, func() { c.s.handleError(err) })
}

func (c *sessionCallbacks) OnStatusChanged(code int) {
	c.s.post(c.gen, func() { c.s.handleStatusChanged(code) })
}

func (c *sessionCallbacks) OnPreviewReady(handle domain.PreviewHandle) {
	c.s.post(c.gen, func() { c.s.handlePreviewReady(handle) })
}

func (c *sessionCallbacks) OnPoseUpdated() {}
