package services

import (
	"context"
	"errors"
	"testing"

	"cloudslam/internal/core/domain"
	apperrors "cloudslam/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clientFixture struct {
	remote    *MockRemoteClient
	settings  *memorySettings
	scheduler *Scheduler
	factory   *fakeFactory
	metrics   *MetricsService
	session   *SessionService
	backend   *MockSensingBackend
	pois      *POIService
	maps      *MapService
	client    *ClientService
}

func newClientFixture(t *testing.T, opts ClientOptions) *clientFixture {
	t.Helper()

	f := &clientFixture{
		remote:    &MockRemoteClient{},
		settings:  &memorySettings{},
		scheduler: NewScheduler(),
		factory:   &fakeFactory{},
		metrics:   NewMetricsService(),
		backend:   &MockSensingBackend{},
	}
	f.session = NewSessionService(f.backend, f.scheduler, NewPoseReader(&poseNode{}, f.metrics), SessionOptions{
		Config:  domain.DefaultSessionConfig(),
		Metrics: f.metrics,
	})
	f.pois = NewPOIService(f.factory, f.metrics, nil)
	f.maps = NewMapService(nil, MapOptions{Metrics: f.metrics})

	opts.Metrics = f.metrics
	f.client = NewClientService(
		f.session,
		NewConfigService(f.settings, domain.DefaultSessionConfig(), nil),
		f.pois,
		f.maps,
		f.remote,
		f.scheduler,
		opts,
	)
	return f
}

func (f *clientFixture) settle() {
	f.client.Wait()
	f.scheduler.Tick()
}

func TestClientService_UpdateConfigAddressRunsAllFlows(t *testing.T) {
	f := newClientFixture(t, ClientOptions{FetchPOIs: true, FetchMap: true})
	f.remote.On("FetchConfig", mock.Anything, "10.0.0.7:8080").
		Return([]byte(`{"server_ip": "10.0.0.7", "udp_port": 7000}`), nil)
	f.remote.On("ReceivePOIs", mock.Anything, "10.0.0.7:8080").
		Return([]byte(poiSnapshot), nil)
	f.remote.On("FetchMap", mock.Anything, "10.0.0.7:8080").
		Return([]byte(`{"mapPoints": {"a": [0, 1, 0], "b": [1, 0, 0]}}`), nil)

	require.NoError(t, f.client.UpdateConfigAddress(context.Background(), "http://10.0.0.7:8080/"))
	f.settle()

	f.remote.AssertExpectations(t)
	assert.Equal(t, "10.0.0.7:8080", f.settings.address)
	require.NotNil(t, f.settings.config)
	assert.Equal(t, 7000, f.settings.config.UDPPort)
	assert.Equal(t, "10.0.0.7", f.session.Config().ServerIP)
	assert.Equal(t, 3, f.pois.Count())
	require.Len(t, f.maps.Batches(), 1)

	flows := f.metrics.Snapshot().Flows
	for _, flow := range []string{FlowConfig, FlowPOI, FlowMap} {
		assert.Equal(t, 1, flows[flow].Requests, flow)
		assert.Zero(t, flows[flow].Failures, flow)
	}
}

func TestClientService_POIsPlacedOnMainLoop(t *testing.T) {
	f := newClientFixture(t, ClientOptions{FetchPOIs: true})
	f.remote.On("FetchConfig", mock.Anything, mock.Anything).Return(nil, errors.New("offline"))
	f.remote.On("ReceivePOIs", mock.Anything, mock.Anything).Return([]byte(poiSnapshot), nil)

	require.NoError(t, f.client.UpdateConfigAddress(context.Background(), "10.0.0.7"))
	f.client.Wait()
	assert.Zero(t, f.pois.Count())

	f.scheduler.Tick()
	assert.Equal(t, 3, f.pois.Count())
}

func TestClientService_FailedFetchesKeepState(t *testing.T) {
	f := newClientFixture(t, ClientOptions{FetchPOIs: true, FetchMap: true})
	f.remote.On("FetchConfig", mock.Anything, mock.Anything).Return([]byte(`{"server_ip": "10.0.0.7"}`), nil).Once()
	f.remote.On("ReceivePOIs", mock.Anything, mock.Anything).Return([]byte(poiSnapshot), nil).Once()
	f.remote.On("FetchMap", mock.Anything, mock.Anything).Return([]byte(`{"mapPoints": {"a": [0, 1, 0]}}`), nil).Once()
	require.NoError(t, f.client.UpdateConfigAddress(context.Background(), "10.0.0.7"))
	f.settle()
	batches := f.maps.Batches()

	netErr := apperrors.NewNetworkError(errors.New("connection refused"), "request failed", 0)
	f.remote.On("FetchConfig", mock.Anything, mock.Anything).Return(nil, netErr)
	f.remote.On("ReceivePOIs", mock.Anything, mock.Anything).Return([]byte(`{"shapes": {}}`), nil)
	f.remote.On("FetchMap", mock.Anything, mock.Anything).Return(nil, netErr)
	require.NoError(t, f.client.UpdateConfigAddress(context.Background(), "10.0.0.7"))
	f.settle()

	assert.Equal(t, "10.0.0.7", f.session.Config().ServerIP)
	assert.Equal(t, 3, f.pois.Count())
	assert.Equal(t, batches, f.maps.Batches())

	flows := f.metrics.Snapshot().Flows
	assert.Equal(t, 1, flows[FlowMap].Failures)
	assert.Equal(t, 1, flows[FlowPOI].Failures)
	assert.Equal(t, 1, flows[FlowConfig].Failures)
}

func TestClientService_EmptyAddressRejected(t *testing.T) {
	f := newClientFixture(t, ClientOptions{})

	err := f.client.UpdateConfigAddress(context.Background(), " \n")

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfiguration))
	f.remote.AssertNotCalled(t, "FetchConfig", mock.Anything, mock.Anything)
}

func TestClientService_InitRestoresSettings(t *testing.T) {
	f := newClientFixture(t, ClientOptions{FetchPOIs: true})
	persisted := domain.DefaultSessionConfig()
	persisted.ServerIP = "10.2.2.2"
	f.settings.config = &persisted
	f.settings.address = "10.2.2.2:8080"
	f.remote.On("ReceivePOIs", mock.Anything, "10.2.2.2:8080").Return([]byte(poiSnapshot), nil)

	require.NoError(t, f.client.Init(context.Background()))
	f.settle()

	assert.Equal(t, "10.2.2.2", f.session.Config().ServerIP)
	assert.Equal(t, "10.2.2.2:8080", f.client.Address())
	assert.Equal(t, 3, f.pois.Count())
}

func TestClientService_InitWithoutSettings(t *testing.T) {
	f := newClientFixture(t, ClientOptions{FetchPOIs: true})

	require.NoError(t, f.client.Init(context.Background()))
	f.settle()

	assert.Empty(t, f.client.Address())
	f.remote.AssertNotCalled(t, "ReceivePOIs", mock.Anything, mock.Anything)
}

func TestClientService_ToggleAndPause(t *testing.T) {
	f := newClientFixture(t, ClientOptions{})
	cfg := domain.DefaultSessionConfig()
	cfg.ServerIP = "10.0.0.3"
	f.session.SetConfig(cfg)
	f.backend.On("Open", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.backend.On("Close").Return(nil)

	require.NoError(t, f.client.Toggle(context.Background()))
	assert.True(t, f.session.IsRunning())

	require.NoError(t, f.client.Toggle(context.Background()))
	assert.Equal(t, domain.SessionClosing, f.session.State())

	require.NoError(t, f.client.Pause())
	f.backend.AssertNumberOfCalls(t, "Close", 1)
}
