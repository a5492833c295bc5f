package network

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// Analysis summarises the connectivity of a network.
type Analysis struct {
	Nodes      int
	Edges      int
	SelfLoops  int
	Components [][]core.NodeID // strongly connected, largest first
	Isolated   []core.NodeID   // nodes with no incoming and no outgoing edge
}

// Strong reports whether every node can reach every other node.
func (a Analysis) Strong() bool {
	return len(a.Components) <= 1
}

// Directed converts the network into a gonum weighted directed graph.
// Parallel edges collapse to the lightest one and self-loops are dropped,
// which changes no shortest-path cost.
func (n *Network) Directed() *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)
	for _, node := range n.nodes {
		g.AddNode(simple.Node(node.ID))
	}
	for _, e := range n.edges {
		if e.From == e.To {
			continue
		}
		if cur := g.WeightedEdge(int64(e.From), int64(e.To)); cur != nil && cur.Weight() <= e.Weight {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), e.Weight))
	}
	return g
}

// Analyze computes strongly connected components and isolated nodes.
func (n *Network) Analyze() Analysis {
	a := Analysis{Nodes: len(n.nodes), Edges: len(n.edges)}

	indeg := make(map[core.NodeID]int)
	for _, e := range n.edges {
		if e.From == e.To {
			a.SelfLoops++
		}
		indeg[e.To]++
	}
	for _, node := range n.nodes {
		if indeg[node.ID] == 0 && len(n.out[node.ID]) == 0 {
			a.Isolated = append(a.Isolated, node.ID)
		}
	}

	for _, comp := range topo.TarjanSCC(n.Directed()) {
		a.Components = append(a.Components, sortedIDs(comp))
	}
	sort.SliceStable(a.Components, func(i, j int) bool {
		if len(a.Components[i]) != len(a.Components[j]) {
			return len(a.Components[i]) > len(a.Components[j])
		}
		return a.Components[i][0] < a.Components[j][0]
	})
	return a
}

// Reachable returns every node reachable from start, start included,
// in ascending id order.
func (n *Network) Reachable(start core.NodeID) []core.NodeID {
	if !n.HasNode(start) {
		return nil
	}
	g := n.Directed()
	var seen []graph.Node
	var bf traverse.BreadthFirst
	bf.Walk(g, simple.Node(start), func(v graph.Node, _ int) bool {
		seen = append(seen, v)
		return false
	})
	return sortedIDs(seen)
}

func sortedIDs(nodes []graph.Node) []core.NodeID {
	ids := make([]core.NodeID, len(nodes))
	for i, v := range nodes {
		ids[i] = core.NodeID(v.ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
