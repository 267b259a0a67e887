// Package flow solves minimum-cost flow problems with node balances and
// per-arc lower bounds. It is the numeric core behind the daily allocation:
// the caller describes a balanced network (who must send, who may receive,
// what each route costs) and Solve returns the cheapest flow that honours
// every bound, or a diagnosis of why no such flow exists.
//
// # Conventions
//
//   - Nodes are dense indices handed out by AddNode; names are kept only
//     for diagnostics.
//   - Supply b(v) > 0 means node v must send b(v) units net;
//     b(v) < 0 means it must receive. Supplies have to sum to zero.
//   - Every arc carries lower <= flow <= upper with a cost per unit.
//     Parallel arcs between the same pair of nodes stay distinct.
//
// # Determinism
//
// Nodes are iterated in index order and arcs in insertion order, so the
// same input always produces the same flow vector.
//
// # Thread Safety
//
// A Network is not safe for concurrent mutation. Solve does not modify
// the Network, so one built instance may be solved from several
// goroutines at once.
package flow

import (
	"math"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// =============================================================================
// Arc
// =============================================================================

// Arc is a directed route between two nodes with capacity bounds and a
// unit cost. Tag is an opaque caller label (link or node identifier)
// echoed back in diagnostics.
type Arc struct {
	From  int
	To    int
	Lower float64
	Upper float64
	Cost  float64
	Tag   string
}

// =============================================================================
// Network
// =============================================================================

// Network accumulates nodes, supplies and arcs for a single solve.
// Build it once per problem; the zero value is not usable, call NewNetwork.
type Network struct {
	names  []string
	index  map[string]int
	supply []float64
	arcs   []Arc
}

// NewNetwork returns an empty network ready for AddNode / AddArc calls.
func NewNetwork() *Network {
	return &Network{
		index: make(map[string]int),
	}
}

// AddNode registers a node under the given name and returns its index.
// Adding the same name twice returns the existing index.
func (n *Network) AddNode(name string) int {
	if idx, ok := n.index[name]; ok {
		return idx
	}
	idx := len(n.names)
	n.names = append(n.names, name)
	n.supply = append(n.supply, 0)
	n.index[name] = idx
	return idx
}

// NodeIndex looks up a node by name.
func (n *Network) NodeIndex(name string) (int, bool) {
	idx, ok := n.index[name]
	return idx, ok
}

// Name returns the diagnostic name of a node index.
func (n *Network) Name(node int) string {
	if node < 0 || node >= len(n.names) {
		return ""
	}
	return n.names[node]
}

// NodeCount returns the number of registered nodes.
func (n *Network) NodeCount() int {
	return len(n.names)
}

// ArcCount returns the number of registered arcs.
func (n *Network) ArcCount() int {
	return len(n.arcs)
}

// Supply returns the balance assigned to a node.
func (n *Network) Supply(node int) float64 {
	if node < 0 || node >= len(n.supply) {
		return 0
	}
	return n.supply[node]
}

// SetSupply assigns the balance of a node, replacing any previous value.
func (n *Network) SetSupply(node int, b float64) {
	if node >= 0 && node < len(n.supply) {
		n.supply[node] = b
	}
}

// AddSupply adds to the balance of a node. Useful when several mass terms
// (previous level, inflow, losses) accumulate on the same node.
func (n *Network) AddSupply(node int, b float64) {
	if node >= 0 && node < len(n.supply) {
		n.supply[node] += b
	}
}

// TotalSupply returns the sum of all node balances. A solvable problem
// has a total of zero within tolerance.
func (n *Network) TotalSupply() float64 {
	total := 0.0
	for _, b := range n.supply {
		total += b
	}
	return total
}

// Arc returns a copy of the arc at the given index.
func (n *Network) Arc(i int) Arc {
	return n.arcs[i]
}

// Arcs returns the arcs in insertion order. The slice is shared; callers
// must not modify it.
func (n *Network) Arcs() []Arc {
	return n.arcs
}

// AddArc registers a directed arc and returns its index. The index is
// stable and identifies the arc's flow in Result.Flows.
//
// Bounds are validated eagerly so that a broken constraint is reported
// against the offending tag instead of surfacing later as an unsolvable
// system. An upper bound within Epsilon below the lower bound is clamped
// up; a larger inversion is an error.
func (n *Network) AddArc(from, to int, lower, upper, cost float64, tag string) (int, error) {
	if from < 0 || from >= len(n.names) {
		return 0, apperror.Newf(apperror.CodeInvalidArgument,
			"arc tail %d is not a registered node", from).WithField(tag)
	}
	if to < 0 || to >= len(n.names) {
		return 0, apperror.Newf(apperror.CodeInvalidArgument,
			"arc head %d is not a registered node", to).WithField(tag)
	}
	if from == to {
		return 0, apperror.New(apperror.CodeSelfLoop,
			"arc connects a node to itself").WithField(tag)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsNaN(cost) {
		return 0, apperror.New(apperror.CodeInvalidArgument,
			"arc bounds or cost is NaN").WithField(tag)
	}
	if math.IsInf(cost, 0) {
		return 0, apperror.New(apperror.CodeInvalidArgument,
			"arc cost is infinite").WithField(tag)
	}
	if lower < 0 {
		return 0, apperror.Newf(apperror.CodeInvalidCapacity,
			"arc lower bound %g is negative", lower).WithField(tag)
	}
	if upper < lower {
		if lower-upper > Epsilon {
			return 0, apperror.Newf(apperror.CodeInvertedBounds,
				"arc bounds inverted: lower %g > upper %g", lower, upper).WithField(tag)
		}
		upper = lower
	}

	idx := len(n.arcs)
	n.arcs = append(n.arcs, Arc{
		From:  from,
		To:    to,
		Lower: lower,
		Upper: upper,
		Cost:  cost,
		Tag:   tag,
	})
	return idx, nil
}
