package domain

// MapSnapshot is the body of GET /client/map.
type MapSnapshot struct {
	MapPoints map[string][]float64 `json:"mapPoints"`
}

// MapPointBatch is a group of map points drawn with one instanced call.
// PointIDs[i] is the point rendered with Transforms[i].
type MapPointBatch struct {
	PointIDs   []string
	Transforms []Matrix4
}

func (b MapPointBatch) Len() int {
	return len(b.Transforms)
}
