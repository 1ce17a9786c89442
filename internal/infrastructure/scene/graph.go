// Package scene is an in-memory scene graph for running the client headless.
package scene

import (
	"sort"
	"sync"

	"cloudslam/internal/core/domain"
	"cloudslam/internal/core/ports"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	KindCamera = "camera"
	KindSphere = "sphere"
	KindCuboid = "cuboid"
	KindAnchor = "anchor"
)

type Node struct {
	guid  string
	kind  string
	graph *Graph

	mu             sync.RWMutex
	transform      domain.Transform
	receiveShadows bool
	destroyed      bool
}

var _ ports.SceneNode = (*Node)(nil)

func newNode(graph *Graph, guid, kind string) *Node {
	return &Node{
		guid:  guid,
		kind:  kind,
		graph: graph,
		transform: domain.Transform{
			Orientation: domain.IdentityOrientation(),
			Scale:       r3.Vec{X: 1, Y: 1, Z: 1},
		},
		receiveShadows: true,
	}
}

func (n *Node) GUID() string { return n.guid }
func (n *Node) Kind() string { return n.kind }

func (n *Node) SetPosition(p r3.Vec) {
	n.mu.Lock()
	n.transform.Position = p
	n.mu.Unlock()
}

func (n *Node) SetOrientation(o domain.Orientation) {
	n.mu.Lock()
	n.transform.Orientation = o
	n.mu.Unlock()
}

func (n *Node) SetScale(s r3.Vec) {
	n.mu.Lock()
	n.transform.Scale = s
	n.mu.Unlock()
}

func (n *Node) SetReceiveShadows(enabled bool) {
	n.mu.Lock()
	n.receiveShadows = enabled
	n.mu.Unlock()
}

func (n *Node) ReceiveShadows() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.receiveShadows
}

func (n *Node) Transform() domain.Transform {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform
}

// Destroy detaches the node from its graph. Later setters still work but
// the node is no longer listed.
func (n *Node) Destroy() {
	n.mu.Lock()
	already := n.destroyed
	n.destroyed = true
	n.mu.Unlock()
	if !already && n.graph != nil {
		n.graph.remove(n)
	}
}

func (n *Node) Destroyed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.destroyed
}

// Graph owns the camera node and every POI node created through it.
type Graph struct {
	camera *Node

	mu    sync.RWMutex
	nodes map[*Node]struct{}
}

var _ ports.POIActorFactory = (*Graph)(nil)

func NewGraph() *Graph {
	g := &Graph{nodes: make(map[*Node]struct{})}
	g.camera = newNode(nil, "camera", KindCamera)
	return g
}

// Camera is the node driven by the tracked pose.
func (g *Graph) Camera() *Node {
	return g.camera
}

func (g *Graph) CreateSphere(guid string) ports.SceneNode { return g.add(guid, KindSphere) }
func (g *Graph) CreateCuboid(guid string) ports.SceneNode { return g.add(guid, KindCuboid) }
func (g *Graph) CreateAnchor(guid string) ports.SceneNode { return g.add(guid, KindAnchor) }

func (g *Graph) add(guid, kind string) *Node {
	n := newNode(g, guid, kind)
	g.mu.Lock()
	g.nodes[n] = struct{}{}
	g.mu.Unlock()
	return n
}

func (g *Graph) remove(n *Node) {
	g.mu.Lock()
	delete(g.nodes, n)
	g.mu.Unlock()
}

// Nodes lists live POI nodes ordered by GUID.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	nodes := make([]*Node, 0, len(g.nodes))
	for n := range g.nodes {
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].guid < nodes[j].guid })
	return nodes
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
