package services

import (
	"context"
	"sync"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"gonum.org/v1/gonum/spatial/r3"
)

type MockSensingBackend struct {
	mock.Mock

	mu        sync.Mutex
	callbacks ports.BackendCallbacks
	buffer    domain.PoseBuffer
}

func (m *MockSensingBackend) Open(ctx context.Context, cfg domain.SessionConfig, callbacks ports.BackendCallbacks) error {
	m.mu.Lock()
	m.callbacks = callbacks
	m.mu.Unlock()
	args := m.Called(ctx, cfg, callbacks)
	return args.Error(0)
}

func (m *MockSensingBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSensingBackend) IsRunning() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockSensingBackend) PoseBuffer() *domain.PoseBuffer {
	return &m.buffer
}

func (m *MockSensingBackend) Callbacks() ports.BackendCallbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbacks
}

type MockPreviewCompositor struct {
	mock.Mock
}

func (m *MockPreviewCompositor) Attach(handle domain.PreviewHandle) error {
	args := m.Called(handle)
	return args.Error(0)
}

func (m *MockPreviewCompositor) Detach() {
	m.Called()
}

type MockRemoteClient struct {
	mock.Mock
}

func (m *MockRemoteClient) FetchConfig(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(ctx, address)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockRemoteClient) FetchMap(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(ctx, address)
	return bytesArg(args, 0), args.Error(1)
}

func (m *MockRemoteClient) ReceivePOIs(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(ctx, address)
	return bytesArg(args, 0), args.Error(1)
}

func bytesArg(args mock.Arguments, i int) []byte {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).([]byte)
}

type eventRecorder struct {
	events []domain.SessionEvent
}

func (r *eventRecorder) OnSessionEvent(event domain.SessionEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []domain.SessionEventType {
	var types []domain.SessionEventType
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

type fakeNode struct {
	guid           string
	kind           string
	position       r3.Vec
	orientation    domain.Orientation
	scale          r3.Vec
	receiveShadows bool
	destroyed      bool
}

func (n *fakeNode) SetPosition(p r3.Vec)                { n.position = p }
func (n *fakeNode) SetOrientation(o domain.Orientation) { n.orientation = o }
func (n *fakeNode) SetScale(s r3.Vec)                   { n.scale = s }
func (n *fakeNode) SetReceiveShadows(enabled bool)      { n.receiveShadows = enabled }
func (n *fakeNode) Destroy()                            { n.destroyed = true }

type fakeFactory struct {
	created []*fakeNode
}

func (f *fakeFactory) create(guid, kind string) ports.SceneNode {
	n := &fakeNode{guid: guid, kind: kind, receiveShadows: true}
	f.created = append(f.created, n)
	return n
}

func (f *fakeFactory) CreateSphere(guid string) ports.SceneNode { return f.create(guid, "sphere") }
func (f *fakeFactory) CreateCuboid(guid string) ports.SceneNode { return f.create(guid, "cuboid") }
func (f *fakeFactory) CreateAnchor(guid string) ports.SceneNode { return f.create(guid, "anchor") }

type fakeRenderer struct {
	draws [][]domain.Matrix4
}

func (r *fakeRenderer) DrawInstanced(transforms []domain.Matrix4) {
	r.draws = append(r.draws, transforms)
}

type memorySettings struct {
	mu      sync.Mutex
	config  *domain.SessionConfig
	address string
	saveErr error
}

func (s *memorySettings) LoadConfig(ctx context.Context) (domain.SessionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return domain.SessionConfig{}, domain.ErrSettingsNotFound
	}
	return *s.config, nil
}

func (s *memorySettings) SaveConfig(ctx context.Context, cfg domain.SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.config = &cfg
	return nil
}

func (s *memorySettings) LoadConfigAddress(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == "" {
		return "", domain.ErrSettingsNotFound
	}
	return s.address, nil
}

func (s *memorySettings) SaveConfigAddress(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = address
	return nil
}

type poseNode struct {
	position    r3.Vec
	orientation domain.Orientation
	updates     int
}

func (n *poseNode) SetPosition(p r3.Vec) {
	n.position = p
	n.updates++
}

func (n *poseNode) SetOrientation(o domain.Orientation) { n.orientation = o }
