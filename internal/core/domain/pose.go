package domain

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// PoseFloats is the number of values in a serialized 4x4 pose.
const PoseFloats = 16

// Matrix4 is a 4x4 homogeneous transform stored row-major:
// m00,m01,m02,m03, m10,...
type Matrix4 [16]float64

// Identity4 returns the identity transform.
func Identity4() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Matrix4) At(r, c int) float64 {
	return m[r*4+c]
}

// Mul returns m*n.
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var out Matrix4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[r*4+c] = m[r*4]*n[c] + m[r*4+1]*n[4+c] + m[r*4+2]*n[8+c] + m[r*4+3]*n[12+c]
		}
	}
	return out
}

// MultiplyPoint transforms p as a point (affine part only, w assumed 1).
func (m Matrix4) MultiplyPoint(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// MultiplyVector transforms v as a direction, ignoring translation.
func (m Matrix4) MultiplyVector(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// Translation returns the translation column.
func (m Matrix4) Translation() r3.Vec {
	return r3.Vec{X: m[3], Y: m[7], Z: m[11]}
}

// PoseBuffer is the fixed-size region the sensing backend writes the latest
// pose into. Each element is stored atomically so a reader never observes a
// torn float, although a concurrent write may leave a mix of two frames.
type PoseBuffer struct {
	words [PoseFloats]atomic.Uint32
}

// Store publishes a pose.
func (b *PoseBuffer) Store(values *[PoseFloats]float32) {
	for i := range values {
		b.words[i].Store(math.Float32bits(values[i]))
	}
}

// CopyTo overwrites dst with the current contents of the buffer.
func (b *PoseBuffer) CopyTo(dst *[PoseFloats]float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(b.words[i].Load())
	}
}
