package network

import (
	"container/heap"
	"math"

	"github.com/elektrokombinacija/trafficsim/internal/core"
)

// pqItem is a frontier entry. seq records discovery order and breaks ties
// between equal distances.
type pqItem struct {
	node core.NodeID
	dist float64
	seq  int
}

// frontier implements heap.Interface.
type frontier []pqItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(pqItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	it := old[n-1]
	*f = old[:n-1]
	return it
}

// ShortestPath returns the minimum-weight node sequence from start to end.
// It returns nil if either node is absent or end is unreachable, and
// [start] when start == end. Weights are nonnegative by construction.
func (n *Network) ShortestPath(start, end core.NodeID) []core.NodeID {
	if !n.HasNode(start) || !n.HasNode(end) {
		return nil
	}
	if start == end {
		return []core.NodeID{start}
	}

	dist := map[core.NodeID]float64{start: 0}
	prev := make(map[core.NodeID]core.NodeID)
	settled := make(map[core.NodeID]bool)

	pq := &frontier{}
	seq := 0
	heap.Push(pq, pqItem{node: start, dist: 0, seq: seq})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if settled[cur.node] {
			continue
		}
		settled[cur.node] = true
		if cur.node == end {
			break
		}

		for _, ei := range n.out[cur.node] {
			e := n.edges[ei]
			if settled[e.To] {
				continue
			}
			alt := cur.dist + e.Weight
			if d, seen := dist[e.To]; !seen || alt < d {
				dist[e.To] = alt
				prev[e.To] = cur.node
				seq++
				heap.Push(pq, pqItem{node: e.To, dist: alt, seq: seq})
			}
		}
	}

	if !settled[end] {
		return nil
	}

	var path []core.NodeID
	for at := end; ; at = prev[at] {
		path = append(path, at)
		if at == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathCost sums the weights along path using EdgeBetween for each hop. It
// returns false if any hop has no edge. A single-node path costs zero.
func (n *Network) PathCost(path []core.NodeID) (float64, bool) {
	if len(path) == 0 {
		return math.Inf(1), false
	}
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		e, ok := n.EdgeBetween(path[i], path[i+1])
		if !ok {
			return math.Inf(1), false
		}
		total += e.Weight
	}
	return total, true
}
