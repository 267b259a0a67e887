package flow

import (
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Epsilon is the tolerance for floating-point comparisons.
// Values smaller than Epsilon are considered zero.
const Epsilon = domain.Epsilon

// Infinity represents an unreachable distance or unlimited capacity.
const Infinity = domain.Infinity

// =============================================================================
// Residual Graph
// =============================================================================
//
// Arcs are stored in a flat arena as forward/reverse pairs: the arc added
// as index i has its reverse at i^1. Pushing flow along either member of
// a pair moves residual capacity to the other, which lets the algorithm
// undo earlier routing decisions.
//
// Unlike an adjacency map keyed by (from, to), the arena keeps parallel
// arcs between the same pair of nodes separate, so two routes with
// different costs or bounds never collapse into one.

// residualArc is one direction of an arc pair.
type residualArc struct {
	to       int
	residual float64 // remaining capacity in this direction
	cost     float64
}

// residualGraph is the mutable working state of a single solve.
type residualGraph struct {
	arcs []residualArc
	adj  [][]int // adj[v] lists arena indices of arcs leaving v, in insertion order
}

// newResidualGraph allocates a graph for the given node count.
// arcHint sizes the arena to avoid regrowth during construction.
func newResidualGraph(nodes, arcHint int) *residualGraph {
	return &residualGraph{
		arcs: make([]residualArc, 0, 2*arcHint),
		adj:  make([][]int, nodes),
	}
}

// addArc appends a forward arc with the given capacity and cost together
// with its zero-capacity reverse, and returns the forward index.
func (g *residualGraph) addArc(from, to int, capacity, cost float64) int {
	idx := len(g.arcs)
	g.arcs = append(g.arcs,
		residualArc{to: to, residual: capacity, cost: cost},
		residualArc{to: from, residual: 0, cost: -cost},
	)
	g.adj[from] = append(g.adj[from], idx)
	g.adj[to] = append(g.adj[to], idx+1)
	return idx
}

// push moves amount units along the arc at idx: its residual shrinks and
// the paired arc's residual grows by the same amount.
func (g *residualGraph) push(idx int, amount float64) {
	g.arcs[idx].residual -= amount
	g.arcs[idx^1].residual += amount
}

// flowOn reports the net flow pushed along the forward arc at idx,
// which is exactly the residual accumulated on its reverse.
func (g *residualGraph) flowOn(idx int) float64 {
	return g.arcs[idx^1].residual
}

// nodeCount returns the number of nodes the graph was built for.
func (g *residualGraph) nodeCount() int {
	return len(g.adj)
}
