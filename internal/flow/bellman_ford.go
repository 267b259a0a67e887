package flow

import (
	"context"
)

// =============================================================================
// Bellman-Ford Algorithm
// =============================================================================
//
// Computes shortest paths from a single source over arcs with positive
// residual capacity. Unlike Dijkstra it tolerates negative arc costs,
// which the allocation relies on (deliveries and carryover are rewarded
// with negative costs), and it detects negative cycles.
//
// Time Complexity: O(V * E)
// Space Complexity: O(V)
//
// Determinism: nodes are relaxed in index order and arcs in insertion
// order, so repeated runs on the same graph produce identical parents.
// =============================================================================

// shortestPaths holds the outcome of one Bellman-Ford run.
type shortestPaths struct {
	// dist[v] is the shortest distance from the source to v,
	// or Infinity when v is unreachable.
	dist []float64

	// parentArc[v] is the arena index of the arc that last relaxed v,
	// or -1 for the source and unreachable nodes.
	parentArc []int

	// hasNegativeCycle is set when a reachable negative-cost cycle exists;
	// distances are then unreliable.
	hasNegativeCycle bool

	// canceled is set when the context expired mid-run.
	canceled bool
}

// Context check interval - balance between responsiveness and performance.
const checkInterval = 100

// bellmanFord executes the plain algorithm from source.
func bellmanFord(ctx context.Context, g *residualGraph, source int) *shortestPaths {
	n := g.nodeCount()
	dist := make([]float64, n)
	parentArc := make([]int, n)
	for v := range dist {
		dist[v] = Infinity
		parentArc[v] = -1
	}
	dist[source] = 0

	for i := 0; i < n-1; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return &shortestPaths{dist: dist, parentArc: parentArc, canceled: true}
			default:
			}
		}

		// Early termination if no updates occurred
		if !relaxAllArcs(g, dist, parentArc) {
			break
		}
	}

	return &shortestPaths{
		dist:             dist,
		parentArc:        parentArc,
		hasNegativeCycle: checkNegativeCycle(g, dist),
	}
}

// bellmanFordWithPotentials runs the algorithm on reduced costs
// cost(u,v) + pot[u] - pot[v]. With potentials taken from the previous
// run all reachable reduced costs are non-negative, which keeps the
// distances small and the successive shortest path loop stable.
func bellmanFordWithPotentials(ctx context.Context, g *residualGraph, source int, pot []float64) *shortestPaths {
	n := g.nodeCount()
	dist := make([]float64, n)
	parentArc := make([]int, n)
	for v := range dist {
		dist[v] = Infinity
		parentArc[v] = -1
	}
	dist[source] = 0

	for i := 0; i < n-1; i++ {
		if i%checkInterval == 0 {
			select {
			case <-ctx.Done():
				return &shortestPaths{dist: dist, parentArc: parentArc, canceled: true}
			default:
			}
		}

		updated := false
		for u := 0; u < n; u++ {
			if dist[u] >= Infinity-Epsilon {
				continue
			}
			for _, idx := range g.adj[u] {
				arc := &g.arcs[idx]
				if arc.residual <= Epsilon {
					continue
				}
				v := arc.to
				reduced := arc.cost + pot[u] - pot[v]
				if nd := dist[u] + reduced; nd < dist[v]-Epsilon {
					dist[v] = nd
					parentArc[v] = idx
					updated = true
				}
			}
		}
		if !updated {
			break
		}
	}

	return &shortestPaths{
		dist:             dist,
		parentArc:        parentArc,
		hasNegativeCycle: checkNegativeCycleWithPotentials(g, dist, pot),
	}
}

// relaxAllArcs performs one relaxation pass in deterministic order.
// Returns true if any distance improved.
func relaxAllArcs(g *residualGraph, dist []float64, parentArc []int) bool {
	updated := false
	for u := 0; u < len(g.adj); u++ {
		if dist[u] >= Infinity-Epsilon {
			continue
		}
		for _, idx := range g.adj[u] {
			arc := &g.arcs[idx]
			if arc.residual <= Epsilon {
				continue
			}
			v := arc.to
			if nd := dist[u] + arc.cost; nd < dist[v]-Epsilon {
				dist[v] = nd
				parentArc[v] = idx
				updated = true
			}
		}
	}
	return updated
}

// checkNegativeCycle reports whether any arc can still be relaxed after
// V-1 passes, which proves a reachable negative cycle.
func checkNegativeCycle(g *residualGraph, dist []float64) bool {
	for u := 0; u < len(g.adj); u++ {
		if dist[u] >= Infinity-Epsilon {
			continue
		}
		for _, idx := range g.adj[u] {
			arc := &g.arcs[idx]
			if arc.residual <= Epsilon {
				continue
			}
			if dist[u]+arc.cost < dist[arc.to]-Epsilon {
				return true
			}
		}
	}
	return false
}

// checkNegativeCycleWithPotentials is the reduced-cost variant of the
// negative-cycle check.
func checkNegativeCycleWithPotentials(g *residualGraph, dist, pot []float64) bool {
	for u := 0; u < len(g.adj); u++ {
		if dist[u] >= Infinity-Epsilon {
			continue
		}
		for _, idx := range g.adj[u] {
			arc := &g.arcs[idx]
			if arc.residual <= Epsilon {
				continue
			}
			reduced := arc.cost + pot[u] - pot[arc.to]
			if dist[u]+reduced < dist[arc.to]-Epsilon {
				return true
			}
		}
	}
	return false
}
