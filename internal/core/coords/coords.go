// Package coords converts poses from the remote service's frame (Y axis down)
// into the application frame (Y axis up). Every remote-frame position or
// orientation consumed by the client goes through this package exactly once.
package coords

import (
	"math"

	"cloudslam/internal/core/domain"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// degenerateEpsilon is the length below which a direction is treated as zero.
const degenerateEpsilon = 1e-9

// mirrorY mirrors through the XZ plane.
var mirrorY = domain.Matrix4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

var (
	// Forward is the remote frame's +Z axis expressed in the application frame.
	Forward = r3.Vec{Z: 1}
	// Up is the remote frame's up reference expressed in the application frame.
	Up = r3.Vec{Y: -1}
	// Right is the remote frame's +X axis expressed in the application frame.
	Right = r3.Vec{X: 1}
)

// PoseTarget is anything a converted pose can be applied to.
type PoseTarget interface {
	SetPosition(p r3.Vec)
	SetOrientation(o domain.Orientation)
}

// ScaledPoseTarget additionally accepts a local scale.
type ScaledPoseTarget interface {
	PoseTarget
	SetScale(s r3.Vec)
}

// MirrorY returns the remote-to-application matrix.
func MirrorY() domain.Matrix4 {
	return mirrorY
}

// FromRowMajor builds a matrix from 16 floats in row-major order.
func FromRowMajor(values *[domain.PoseFloats]float32) domain.Matrix4 {
	var m domain.Matrix4
	for i, v := range values {
		m[i] = float64(v)
	}
	return m
}

// PoseToApplication converts a flat remote-frame pose.
func PoseToApplication(values *[domain.PoseFloats]float32) domain.Matrix4 {
	return mirrorY.Mul(FromRowMajor(values))
}

// TRS composes translation, rotation and scale. The rotation is normalised
// first; a zero quaternion is treated as identity.
func TRS(position r3.Vec, rotation quat.Number, scale r3.Vec) domain.Matrix4 {
	rot := r3.Rotation(normalize(rotation))
	x := r3.Scale(scale.X, rot.Rotate(r3.Vec{X: 1}))
	y := r3.Scale(scale.Y, rot.Rotate(r3.Vec{Y: 1}))
	z := r3.Scale(scale.Z, rot.Rotate(r3.Vec{Z: 1}))
	return domain.Matrix4{
		x.X, y.X, z.X, position.X,
		x.Y, y.Y, z.Y, position.Y,
		x.Z, y.Z, z.Z, position.Z,
		0, 0, 0, 1,
	}
}

// TRSToApplication converts a remote-frame position, rotation and scale.
func TRSToApplication(position r3.Vec, rotation quat.Number, scale r3.Vec) domain.Matrix4 {
	return mirrorY.Mul(TRS(position, rotation, scale))
}

// PositionToApplication converts a bare remote-frame coordinate.
func PositionToApplication(x, y, z float64) r3.Vec {
	return mirrorY.MultiplyPoint(r3.Vec{X: x, Y: y, Z: z})
}

// Decompose extracts the origin of an application-frame pose and the
// orientation obtained by looking along its forward axis with its up axis as
// reference. ok is false when the forward axis is degenerate.
func Decompose(m domain.Matrix4) (position r3.Vec, orientation domain.Orientation, ok bool) {
	position = m.MultiplyPoint(r3.Vec{})
	target := m.MultiplyPoint(Forward)
	up := m.MultiplyVector(Up)
	orientation, ok = LookRotation(r3.Sub(target, position), up)
	return position, orientation, ok
}

// LookRotation builds a left-handed orthonormal basis whose forward axis is
// along forward and whose up axis lies in the plane of forward and up.
// When up is parallel to forward the world axis least aligned with forward is
// used instead. ok is false when forward has no length.
func LookRotation(forward, up r3.Vec) (domain.Orientation, bool) {
	if r3.Norm(forward) < degenerateEpsilon {
		return domain.Orientation{}, false
	}
	f := r3.Unit(forward)
	right := r3.Cross(up, f)
	if r3.Norm(right) < degenerateEpsilon {
		right = r3.Cross(leastAligned(f), f)
	}
	right = r3.Unit(right)
	return domain.Orientation{
		Right:   right,
		Up:      r3.Cross(f, right),
		Forward: f,
	}, true
}

// ApplyPose converts a flat remote-frame pose and applies it to t. The
// orientation is left untouched when the pose has a degenerate forward axis.
func ApplyPose(values *[domain.PoseFloats]float32, t PoseTarget) {
	apply(PoseToApplication(values), t)
}

// ApplyTRS converts a remote-frame position and rotation, applies them to t
// and sets its local scale. Orientation is derived with unit scale so that a
// zero scale component cannot collapse the basis.
func ApplyTRS(position r3.Vec, rotation quat.Number, scale r3.Vec, t ScaledPoseTarget) {
	apply(TRSToApplication(position, rotation, r3.Vec{X: 1, Y: 1, Z: 1}), t)
	t.SetScale(scale)
}

func apply(m domain.Matrix4, t PoseTarget) {
	position, orientation, ok := Decompose(m)
	t.SetPosition(position)
	if ok {
		t.SetOrientation(orientation)
	}
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < degenerateEpsilon {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func leastAligned(f r3.Vec) r3.Vec {
	best := r3.Vec{Y: 1}
	bestDot := math.Abs(f.Y)
	if d := math.Abs(f.Z); d < bestDot {
		best, bestDot = r3.Vec{Z: 1}, d
	}
	if d := math.Abs(f.X); d < bestDot {
		best = r3.Vec{X: 1}
	}
	return best
}
