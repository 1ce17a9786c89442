package domain

import "gonum.org/v1/gonum/spatial/r3"

// Orientation is an orthonormal basis expressed in the application frame.
type Orientation struct {
	Right   r3.Vec
	Up      r3.Vec
	Forward r3.Vec
}

// IdentityOrientation is the application frame's own basis.
func IdentityOrientation() Orientation {
	return Orientation{
		Right:   r3.Vec{X: 1},
		Up:      r3.Vec{Y: 1},
		Forward: r3.Vec{Z: 1},
	}
}

// Transform is the placement of a scene node in the application frame.
type Transform struct {
	Position    r3.Vec
	Orientation Orientation
	Scale       r3.Vec
}
