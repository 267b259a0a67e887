// Package solver translates a water network and its daily boundary data into
// a minimum-cost flow problem and extracts the optimal allocation.
//
// # Formulation
//
// Every unit of water entering the day — source inflow plus storage volume
// remaining after evaporation — must leave through exactly one of three doors:
// delivery to a demand, carryover into the next day, or spill. The doors are
// priced so that delivery always beats carryover and carryover always beats
// spill (see the cost constants in pkg/domain; demand priorities scale the
// delivery reward through the link costs). A single absorbing sink closes the
// balance, so a demand shortfall shows up as an unsaturated delivery arc
// rather than as an infeasible program. Infeasibility is reserved for genuine
// structural impossibility: inflow that has no route out through deliveries,
// storage headroom or spills.
//
// # Lookahead
//
// For a horizon of H days the network is replicated H times and the layers
// are chained through storage carryover arcs: water kept on day t arrives at
// the same storage on day t+1. Only the final layer terminates in virtual
// sinks. The optimum is a plan for the whole horizon, but callers commit only
// the first day. SinglePeriod is exactly Lookahead with H = 1; both run the
// same assembly, so their equivalence holds by construction.
//
// # Determinism and Safety
//
// A Solver is safe for concurrent use: every call assembles its own flow
// network and never modifies the domain network. Identical inputs produce
// identical results.
package solver

import (
	"context"
	"time"

	"github.com/jlillywh/hydrosim/internal/flow"
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// =============================================================================
// Options
// =============================================================================

// Options configures the allocation solver.
//
// Zero values are safe to use: New fills them from DefaultOptions.
type Options struct {
	// Epsilon is the tolerance for floating-point comparisons.
	// Default: domain.Epsilon (1e-9).
	Epsilon float64

	// MaxIterations limits the number of augmenting path iterations in the
	// underlying flow solver. Zero or negative means unlimited.
	MaxIterations int

	// Timeout bounds a single solve. Zero means no timeout beyond whatever
	// the caller's context carries. Default: 30 seconds.
	Timeout time.Duration

	// CarryoverCost is the objective coefficient for keeping water in storage
	// between days. It must lie strictly between the demand reward and the
	// spill cost for the allocation order to hold. Zero means
	// domain.CostStorage.
	CarryoverCost float64
}

// DefaultOptions returns options with sensible defaults for most use cases.
func DefaultOptions() *Options {
	return &Options{
		Epsilon:       domain.Epsilon,
		MaxIterations: 0,
		Timeout:       30 * time.Second,
		CarryoverCost: domain.CostStorage,
	}
}

// =============================================================================
// Problem and Result
// =============================================================================

// DayData carries the boundary values for one day of the horizon. The engine
// fills day one from the stepped node states and later days from strategy
// peeks.
type DayData struct {
	Generation map[string]float64 // source id -> inflow, m³
	Requests   map[string]float64 // demand id -> requested volume, m³
}

// Problem is a single allocation request. Bounds must hold the constraint
// funnel output for every link; the same bounds apply to every day of the
// horizon, because hydraulic capacity is evaluated against the committed
// day-one state.
type Problem struct {
	Network *domain.Network
	Bounds  map[string]domain.Bounds // link id -> funnel output
	Days    []DayData                // day one first; len(Days) is the horizon
}

// Result holds the committed day-one allocation. All maps are keyed by the
// identifiers of the caller's network; virtual arcs never appear in Flows.
type Result struct {
	Flows       map[string]float64 // link id -> flow, m³
	Levels      map[string]float64 // storage id -> end-of-day volume, m³
	Delivered   map[string]float64 // demand id -> delivered volume, m³
	Spills      map[string]float64 // storage id -> spilled volume, m³
	Evaporation map[string]float64 // storage id -> applied evaporation loss, m³

	// Warnings collects non-fatal conditions observed during assembly:
	// evaporation clamped to the stored volume, storage below dead pool.
	Warnings []*apperror.Error

	Horizon    int           // number of days in the solved plan
	Nodes      int           // node count of the assembled flow network
	Arcs       int           // arc count of the assembled flow network
	Cost       float64       // objective value over the whole horizon
	Iterations int           // augmenting path count
	Duration   time.Duration // total solve time including assembly
}

// =============================================================================
// Solver
// =============================================================================

// Solver runs allocations with a fixed set of options.
type Solver struct {
	opts Options
}

// New creates a solver. A nil opts selects DefaultOptions; zero fields that
// have no standalone meaning (Epsilon, CarryoverCost) fall back to defaults.
func New(opts *Options) *Solver {
	merged := *DefaultOptions()
	if opts != nil {
		merged = *opts
		if merged.Epsilon <= 0 {
			merged.Epsilon = domain.Epsilon
		}
		if merged.CarryoverCost == 0 {
			merged.CarryoverCost = domain.CostStorage
		}
	}
	return &Solver{opts: merged}
}

// SinglePeriod solves a one-day allocation. It expects exactly one day of
// boundary data and is equivalent to Lookahead over a one-day horizon.
func (s *Solver) SinglePeriod(ctx context.Context, p *Problem) (*Result, error) {
	if p != nil && len(p.Days) != 1 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"single period expects exactly one day of data, got %d", len(p.Days))
	}
	return s.solve(ctx, p)
}

// Lookahead solves a time-expanded allocation over len(p.Days) days and
// returns the committed day-one decisions. Later days only shape the plan:
// they let the optimizer hold water back for a high-priority demand that has
// not arrived yet, or release it ahead of inflow that would otherwise spill.
func (s *Solver) Lookahead(ctx context.Context, p *Problem) (*Result, error) {
	return s.solve(ctx, p)
}

func (s *Solver) solve(ctx context.Context, p *Problem) (*Result, error) {
	started := time.Now()

	if p == nil {
		return nil, apperror.New(apperror.CodeNilInput, "problem is nil")
	}
	if p.Network == nil {
		return nil, apperror.ErrNilNetwork
	}
	if len(p.Days) == 0 {
		return nil, apperror.New(apperror.CodeInvalidArgument,
			"horizon is empty: at least one day of boundary data required")
	}

	a, err := newAssembly(p, s.opts.CarryoverCost)
	if err != nil {
		return nil, err
	}

	fres, err := flow.Solve(ctx, a.arena, &flow.Options{
		Epsilon:       s.opts.Epsilon,
		MaxIterations: s.opts.MaxIterations,
		Timeout:       s.opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	res := a.extract(fres)
	res.Duration = time.Since(started)
	return res, nil
}
