package coords

import (
	"math"
	"testing"

	"cloudslam/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const tolerance = 1e-5

type recordingTarget struct {
	position    r3.Vec
	orientation domain.Orientation
	scale       r3.Vec
	oriented    bool
}

func (t *recordingTarget) SetPosition(p r3.Vec) { t.position = p }

func (t *recordingTarget) SetOrientation(o domain.Orientation) {
	t.orientation = o
	t.oriented = true
}

func (t *recordingTarget) SetScale(s r3.Vec) { t.scale = s }

func assertVec(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tolerance, "x")
	assert.InDelta(t, want.Y, got.Y, tolerance, "y")
	assert.InDelta(t, want.Z, got.Z, tolerance, "z")
}

func identityPose() [domain.PoseFloats]float32 {
	return [domain.PoseFloats]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func flatten(m domain.Matrix4) [domain.PoseFloats]float32 {
	var out [domain.PoseFloats]float32
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

func TestApplyPose_Identity(t *testing.T) {
	pose := identityPose()
	target := &recordingTarget{}

	ApplyPose(&pose, target)

	require.True(t, target.oriented)
	assertVec(t, r3.Vec{}, target.position)
	assertVec(t, Forward, target.orientation.Forward)
	assertVec(t, r3.Scale(-1, Up), target.orientation.Up)
	assertVec(t, Right, target.orientation.Right)
}

func TestApplyPose_TranslationYIsMirrored(t *testing.T) {
	pose := identityPose()
	pose[3], pose[7], pose[11] = 1.5, 2.25, -3
	target := &recordingTarget{}

	ApplyPose(&pose, target)

	assertVec(t, r3.Vec{X: 1.5, Y: -2.25, Z: -3}, target.position)
}

func TestMirrorY_IsInvolution(t *testing.T) {
	poses := []domain.Matrix4{
		TRS(r3.Vec{X: 1, Y: 2, Z: 3}, quat.Number{Real: 1}, r3.Vec{X: 1, Y: 1, Z: 1}),
		TRS(r3.Vec{X: -4, Y: 0.5, Z: 9}, quat.Number{Real: 0.7071068, Jmag: 0.7071068}, r3.Vec{X: 2, Y: 2, Z: 2}),
	}
	for _, p := range poses {
		twice := mirrorY.Mul(mirrorY.Mul(p))
		for i := range p {
			assert.InDelta(t, p[i], twice[i], tolerance)
		}
		y := p.Translation().Y
		assert.InDelta(t, -y, mirrorY.Mul(p).Translation().Y, tolerance)
	}
}

func TestFlatAndTRSShapesAgree(t *testing.T) {
	cases := []struct {
		name     string
		position r3.Vec
		rotation quat.Number
	}{
		{"identity", r3.Vec{}, quat.Number{Real: 1}},
		{"yaw 90", r3.Vec{X: 1, Y: -2, Z: 0.5}, quat.Number{Real: math.Sqrt2 / 2, Jmag: math.Sqrt2 / 2}},
		{"roll 45", r3.Vec{X: 0, Y: 3, Z: -1}, quat.Number{Real: math.Cos(math.Pi / 8), Kmag: math.Sin(math.Pi / 8)}},
		{"compound", r3.Vec{X: 7, Y: 8, Z: 9}, quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}},
	}
	one := r3.Vec{X: 1, Y: 1, Z: 1}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flat := flatten(TRS(tc.position, tc.rotation, one))
			viaFlat := &recordingTarget{}
			ApplyPose(&flat, viaFlat)

			viaTRS := &recordingTarget{}
			ApplyTRS(tc.position, tc.rotation, one, viaTRS)

			assertVec(t, viaFlat.position, viaTRS.position)
			assertVec(t, viaFlat.orientation.Forward, viaTRS.orientation.Forward)
			assertVec(t, viaFlat.orientation.Up, viaTRS.orientation.Up)
			assertVec(t, viaFlat.orientation.Right, viaTRS.orientation.Right)
		})
	}
}

func TestApplyTRS_SetsScaleAndKeepsBasisForZeroScale(t *testing.T) {
	target := &recordingTarget{}
	scale := r3.Vec{X: 2, Y: 0, Z: 1}

	ApplyTRS(r3.Vec{Y: 1}, quat.Number{Real: 1}, scale, target)

	require.True(t, target.oriented)
	assert.Equal(t, scale, target.scale)
	assertVec(t, r3.Vec{Y: -1}, target.position)
	assertVec(t, r3.Vec{Y: 1}, target.orientation.Up)
}

func TestPositionToApplication(t *testing.T) {
	assertVec(t, r3.Vec{X: 1, Y: -2, Z: 3}, PositionToApplication(1, 2, 3))
	assertVec(t, r3.Vec{}, PositionToApplication(0, 0, 0))
}

func TestLookRotation_Degenerate(t *testing.T) {
	_, ok := LookRotation(r3.Vec{}, r3.Vec{Y: 1})
	assert.False(t, ok)

	o, ok := LookRotation(r3.Vec{Y: 5}, r3.Vec{Y: 1})
	require.True(t, ok)
	assertVec(t, r3.Vec{Y: 1}, o.Forward)
	assert.InDelta(t, 0, r3.Dot(o.Forward, o.Right), tolerance)
	assert.InDelta(t, 0, r3.Dot(o.Forward, o.Up), tolerance)
	assert.InDelta(t, 1, r3.Norm(o.Right), tolerance)
}

func TestLookRotation_ReorthonormalizesUp(t *testing.T) {
	o, ok := LookRotation(r3.Vec{Z: 1}, r3.Vec{Y: 1, Z: 1})
	require.True(t, ok)
	assertVec(t, r3.Vec{Y: 1}, o.Up)
	assertVec(t, r3.Vec{X: 1}, o.Right)
}

func TestApplyPose_DegenerateKeepsOrientation(t *testing.T) {
	var zero [domain.PoseFloats]float32
	zero[3] = 4
	target := &recordingTarget{}

	ApplyPose(&zero, target)

	assert.False(t, target.oriented)
	assertVec(t, r3.Vec{X: 4}, target.position)
}
