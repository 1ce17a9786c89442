package scene

import (
	"sync"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
)

// RenderStats summarises instanced draw calls.
type RenderStats struct {
	Calls     int64
	Instances int64
	// LastFrame holds the instance count of each call since the last
	// EndFrame.
	LastFrame []int
}

// Renderer records instanced draw calls instead of issuing them.
type Renderer struct {
	mu        sync.Mutex
	calls     int64
	instances int64
	frame     []int
	lastFrame []int
}

var _ ports.InstancedRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) DrawInstanced(transforms []domain.Matrix4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.instances += int64(len(transforms))
	r.frame = append(r.frame, len(transforms))
}

// EndFrame closes the current frame. It runs as the last updater of a tick.
func (r *Renderer) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFrame = r.frame
	r.frame = nil
}

// Update implements ports.Updater.
func (r *Renderer) Update() {
	r.EndFrame()
}

func (r *Renderer) Stats() RenderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RenderStats{
		Calls:     r.calls,
		Instances: r.instances,
		LastFrame: append([]int(nil), r.lastFrame...),
	}
}
