// Package graph holds the undirected weighted spatial graph that evacuation
// routes are computed on.
package graph

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// NodeKind distinguishes road junctions fetched from a network source from the
// city and safe-zone nodes the planner inserts.
type NodeKind int

const (
	RoadJunction NodeKind = iota
	City
	SafeZone
)

func (k NodeKind) String() string {
	switch k {
	case RoadJunction:
		return "road_junction"
	case City:
		return "city"
	case SafeZone:
		return "safe_zone"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a spatial vertex. Pos is (lon, lat).
type Node struct {
	ID    int64
	Pos   orb.Point
	Kind  NodeKind
	Label string
	Risk  float64
}

// Edge is an undirected connection. Weight starts equal to BaseLength and is
// replaced when the graph is annotated with hazard costs.
type Edge struct {
	From       int64
	To         int64
	BaseLength float64
	Weight     float64
}

// Graph is not safe for concurrent mutation; each planning pass owns its own.
type Graph struct {
	nodes       map[int64]*Node
	order       []int64
	edges       []Edge
	adj         map[int64][]int
	roadAt      map[orb.Point]int64
	syntheticID int64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:  make(map[int64]*Node),
		adj:    make(map[int64][]int),
		roadAt: make(map[orb.Point]int64),
	}
}

// AddNode inserts n, or replaces the node with the same ID.
func (g *Graph) AddNode(n Node) {
	if _, ok := g.nodes[n.ID]; !ok {
		g.order = append(g.order, n.ID)
	}
	node := n
	g.nodes[n.ID] = &node
	if n.Kind == RoadJunction {
		if cur, ok := g.roadAt[n.Pos]; !ok || n.ID < cur {
			g.roadAt[n.Pos] = n.ID
		}
	}
}

// NextSyntheticID returns an ID for a node that does not come from the
// network source. Synthetic IDs are negative so they never collide with OSM IDs.
func (g *Graph) NextSyntheticID() int64 {
	g.syntheticID--
	return g.syntheticID
}

// AddEdge connects two existing nodes. Self loops are ignored.
func (g *Graph) AddEdge(from, to int64, baseLength float64) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("add edge: unknown node %d", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("add edge: unknown node %d", to)
	}
	if from == to {
		return nil
	}
	idx := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, BaseLength: baseLength, Weight: baseLength})
	g.adj[from] = append(g.adj[from], idx)
	g.adj[to] = append(g.adj[to], idx)
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// CountKind returns how many nodes of the given kind the graph holds.
func (g *Graph) CountKind(kind NodeKind) int {
	n := 0
	for _, node := range g.nodes {
		if node.Kind == kind {
			n++
		}
	}
	return n
}

// ForEachEdge calls fn with a pointer to every edge and its two endpoints, so
// fn can rewrite the weight in place.
func (g *Graph) ForEachEdge(fn func(e *Edge, a, b Node)) {
	for i := range g.edges {
		e := &g.edges[i]
		fn(e, *g.nodes[e.From], *g.nodes[e.To])
	}
}

// RoadNodeAt returns the road junction sitting exactly at p.
func (g *Graph) RoadNodeAt(p orb.Point) (Node, bool) {
	id, ok := g.roadAt[p]
	if !ok {
		return Node{}, false
	}
	return *g.nodes[id], true
}

// NearestRoadNode returns the road junction with the smallest planar
// (degree-space) distance to p. Ties go to the lowest node ID.
func (g *Graph) NearestRoadNode(p orb.Point) (Node, bool) {
	var (
		best     *Node
		bestDist = math.Inf(1)
	)
	for _, n := range g.nodes {
		if n.Kind != RoadJunction {
			continue
		}
		d := planar.DistanceSquared(p, n.Pos)
		if d < bestDist || (d == bestDist && best != nil && n.ID < best.ID) {
			best = n
			bestDist = d
		}
	}
	if best == nil {
		return Node{}, false
	}
	return *best, true
}
