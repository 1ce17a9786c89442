package ports

import (
	"cloudslam/internal/core/domain"

	"gonum.org/v1/gonum/spatial/r3"
)

type SceneNode interface {
	SetPosition(p r3.Vec)
	SetOrientation(o domain.Orientation)
	SetScale(s r3.Vec)
	SetReceiveShadows(enabled bool)
	Destroy()
}

// POIActorFactory creates scene primitives for points of interest.
type POIActorFactory interface {
	CreateSphere(guid string) SceneNode
	CreateCuboid(guid string) SceneNode
	CreateAnchor(guid string) SceneNode
}

// InstancedRenderer draws one batch of map points per call.
type InstancedRenderer interface {
	DrawInstanced(transforms []domain.Matrix4)
}
