// Package network implements the road network: a directed, weighted graph
// that is populated once during setup and then only read.
//
// Nodes and edges live in dense slices (arenas) and are looked up through
// id indexes, so no caller ever holds a pointer into a copy of an edge.
package network

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// Options controls insertion policy.
type Options struct {
	// AllowParallelEdges permits more than one edge for the same ordered
	// (from, to) pair.
	AllowParallelEdges bool
}

// DefaultOptions returns the default insertion policy.
func DefaultOptions() Options {
	return Options{AllowParallelEdges: true}
}

// Network is the road graph.
type Network struct {
	opts Options

	nodes     []core.Node
	nodeIndex map[core.NodeID]int

	edges     []core.Edge
	edgeIndex map[core.EdgeID]int

	// adjacency: node id -> indexes into edges, in insertion order
	out map[core.NodeID][]int
}

// New creates an empty network.
func New(opts Options) *Network {
	return &Network{
		opts:      opts,
		nodeIndex: make(map[core.NodeID]int),
		edgeIndex: make(map[core.EdgeID]int),
		out:       make(map[core.NodeID][]int),
	}
}

// Options returns the insertion policy the network was created with.
func (n *Network) Options() Options { return n.opts }

// AddNode inserts a node. It fails if the id is already present.
func (n *Network) AddNode(id core.NodeID, pos orb.Point) bool {
	if _, ok := n.nodeIndex[id]; ok {
		return false
	}
	n.nodeIndex[id] = len(n.nodes)
	n.nodes = append(n.nodes, core.Node{ID: id, Pos: pos})
	n.out[id] = nil
	return true
}

// AddEdge inserts a directed edge. It fails if the edge id is taken, an
// endpoint is missing, the weight is negative, infinite or NaN, or
// parallel edges are disabled and the pair is already connected.
func (n *Network) AddEdge(id core.EdgeID, from, to core.NodeID, weight float64) bool {
	if _, ok := n.edgeIndex[id]; ok {
		return false
	}
	if !n.HasNode(from) || !n.HasNode(to) {
		return false
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 1) {
		return false
	}
	if !n.opts.AllowParallelEdges && n.HasEdgeBetween(from, to) {
		return false
	}

	n.edgeIndex[id] = len(n.edges)
	n.edges = append(n.edges, core.Edge{ID: id, From: from, To: to, Weight: weight})
	n.out[from] = append(n.out[from], len(n.edges)-1)
	return true
}

// HasNode reports whether the node exists.
func (n *Network) HasNode(id core.NodeID) bool {
	_, ok := n.nodeIndex[id]
	return ok
}

// HasEdge reports whether the edge exists.
func (n *Network) HasEdge(id core.EdgeID) bool {
	_, ok := n.edgeIndex[id]
	return ok
}

// Node returns the node with the given id.
func (n *Network) Node(id core.NodeID) (core.Node, bool) {
	i, ok := n.nodeIndex[id]
	if !ok {
		return core.Node{}, false
	}
	return n.nodes[i], true
}

// Edge returns the edge with the given id.
func (n *Network) Edge(id core.EdgeID) (core.Edge, bool) {
	i, ok := n.edgeIndex[id]
	if !ok {
		return core.Edge{}, false
	}
	return n.edges[i], true
}

// EdgesFrom returns the outgoing edges of a node in insertion order. The
// result is a copy; unknown nodes yield nil.
func (n *Network) EdgesFrom(id core.NodeID) []core.Edge {
	idx := n.out[id]
	if len(idx) == 0 {
		return nil
	}
	edges := make([]core.Edge, len(idx))
	for i, ei := range idx {
		edges[i] = n.edges[ei]
	}
	return edges
}

// HasEdgeBetween reports whether any edge runs from -> to.
func (n *Network) HasEdgeBetween(from, to core.NodeID) bool {
	_, ok := n.EdgeBetween(from, to)
	return ok
}

// EdgeBetween returns the edge from -> to. When parallel edges exist the
// lightest one wins, earliest inserted on ties, so that traversal time
// matches the cost the shortest path was planned with.
func (n *Network) EdgeBetween(from, to core.NodeID) (core.Edge, bool) {
	best := -1
	for _, ei := range n.out[from] {
		e := n.edges[ei]
		if e.To != to {
			continue
		}
		if best < 0 || e.Weight < n.edges[best].Weight {
			best = ei
		}
	}
	if best < 0 {
		return core.Edge{}, false
	}
	return n.edges[best], true
}

// Nodes returns all nodes in insertion order.
func (n *Network) Nodes() []core.Node {
	return append([]core.Node(nil), n.nodes...)
}

// NodeIDs returns all node ids in insertion order.
func (n *Network) NodeIDs() []core.NodeID {
	ids := make([]core.NodeID, len(n.nodes))
	for i, node := range n.nodes {
		ids[i] = node.ID
	}
	return ids
}

// Edges returns all edges in insertion order.
func (n *Network) Edges() []core.Edge {
	return append([]core.Edge(nil), n.edges...)
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int { return len(n.nodes) }

// EdgeCount returns the number of edges.
func (n *Network) EdgeCount() int { return len(n.edges) }

// Bounds returns the bounding box of all node positions.
func (n *Network) Bounds() orb.Bound {
	if len(n.nodes) == 0 {
		return orb.Bound{}
	}
	b := n.nodes[0].Pos.Bound()
	for _, node := range n.nodes[1:] {
		b = b.Extend(node.Pos)
	}
	return b
}

// Clear resets the network to empty. The insertion policy is kept.
func (n *Network) Clear() {
	n.nodes = nil
	n.edges = nil
	n.nodeIndex = make(map[core.NodeID]int)
	n.edgeIndex = make(map[core.EdgeID]int)
	n.out = make(map[core.NodeID][]int)
}
