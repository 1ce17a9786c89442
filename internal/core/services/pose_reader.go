package services

import (
	"cloudslam/internal/core/coords"
	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"
)

// PoseReader copies the latest pose out of the backend buffer once per tick
// and applies it to a scene node. It reuses one decode buffer.
type PoseReader struct {
	target  coords.PoseTarget
	metrics ports.MetricsRecorder

	buffer  *domain.PoseBuffer
	scratch [domain.PoseFloats]float32
}

func NewPoseReader(target coords.PoseTarget, metrics ports.MetricsRecorder) *PoseReader {
	return &PoseReader{
		target:  target,
		metrics: orDefaultMetrics(metrics),
	}
}

// SetBuffer installs or, with nil, invalidates the pose buffer handle.
func (r *PoseReader) SetBuffer(buffer *domain.PoseBuffer) {
	r.buffer = buffer
}

// Attached reports whether a pose buffer handle is installed.
func (r *PoseReader) Attached() bool {
	return r.buffer != nil
}

// Update is a no-op without a handle.
func (r *PoseReader) Update() {
	if r.buffer == nil || r.target == nil {
		return
	}
	r.buffer.CopyTo(&r.scratch)
	coords.ApplyPose(&r.scratch, r.target)
	r.metrics.RecordPoseRead()
}
