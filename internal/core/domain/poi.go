package domain

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

type POIType int

const (
	POIUnknown POIType = iota
	POISphere
	POICuboid
	POIAnchor
)

// ParsePOIType maps the wire tag. Anything unrecognised is POIUnknown.
func ParsePOIType(tag string) POIType {
	switch tag {
	case "sphere":
		return POISphere
	case "cuboid":
		return POICuboid
	case "anchor":
		return POIAnchor
	default:
		return POIUnknown
	}
}

func (t POIType) String() string {
	switch t {
	case POISphere:
		return "sphere"
	case POICuboid:
		return "cuboid"
	case POIAnchor:
		return "anchor"
	default:
		return "unknown"
	}
}

type POITransform struct {
	PX    float64 `json:"px"`
	PY    float64 `json:"py"`
	PZ    float64 `json:"pz"`
	QX    float64 `json:"qx"`
	QY    float64 `json:"qy"`
	QZ    float64 `json:"qz"`
	QW    float64 `json:"qw"`
	Scale float64 `json:"scale"`
}

type POIDetails struct {
	Size              float64 `json:"size"`
	XSize             float64 `json:"xSize"`
	YSize             float64 `json:"ySize"`
	ZSize             float64 `json:"zSize"`
	Radius            float64 `json:"radius"`
	TriggerInsideOnly bool    `json:"triggerInsideOnly"`
}

// PointOfInterest is a typed, posed marker as delivered by the remote
// service. Position and rotation are in the remote frame.
type PointOfInterest struct {
	GUID      string       `json:"GUID"`
	RawType   string       `json:"type"`
	ImgID     int          `json:"imgId"`
	Checksum  string       `json:"checksum"`
	Transform POITransform `json:"transform"`
	Details   POIDetails   `json:"details"`
}

// POICollection is the body of a POI snapshot.
type POICollection struct {
	Shapes map[string]*PointOfInterest `json:"shapes"`
}

func (p *PointOfInterest) Type() POIType {
	return ParsePOIType(p.RawType)
}

func (p *PointOfInterest) Position() r3.Vec {
	return r3.Vec{X: p.Transform.PX, Y: p.Transform.PY, Z: p.Transform.PZ}
}

func (p *PointOfInterest) Rotation() quat.Number {
	return quat.Number{Real: p.Transform.QW, Imag: p.Transform.QX, Jmag: p.Transform.QY, Kmag: p.Transform.QZ}
}

// LocalScale derives the node scale from the type-specific details.
func (p *PointOfInterest) LocalScale() r3.Vec {
	switch p.Type() {
	case POICuboid:
		return r3.Vec{X: p.Details.XSize, Y: p.Details.YSize, Z: p.Details.ZSize}
	case POISphere:
		return uniform(p.Details.Radius)
	case POIAnchor:
		return uniform(p.Details.Size)
	default:
		return uniform(p.Transform.Scale)
	}
}

func uniform(s float64) r3.Vec {
	return r3.Vec{X: s, Y: s, Z: s}
}
