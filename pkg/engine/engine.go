// Package engine drives the daily simulation cycle over a water network.
//
// # Daily cycle
//
// A run advances one day at a time, and every day passes through the same
// five phases in a fixed order: the climate supplier publishes the day's
// drivers, every node updates its vertical state from them (inflow
// generation, demand requests, evaporation losses), every link funnels its
// physical, hydraulic and control limits into effective bounds, the solver
// allocates the day's water over the lookahead horizon, and the first-day
// plan is committed back into the network. Water never moves outside the
// solver: storage levels change only when phase five applies a solution.
//
// # Lookahead scheduling
//
// With a horizon of H > 1 days the engine plans H days but commits one.
// Two schedules are supported. The rolling schedule re-plans a full H-day
// window every day. The block schedule anchors the horizon instead: it
// plans H days, then H-1, down to 1, then opens a fresh block, so all days
// of one block share a terminal date. Future days are fed either by peeking
// at the climate supplier and the node strategies (perfect foresight) or by
// repeating the current day's boundary data (persistence), and a horizon
// quietly shrinks when the forecast outlives the input data.
//
// # Failure semantics
//
// Exhausted input data ends a run early but cleanly: the results keep every
// day that was simulated and the run is marked truncated. Solver warnings
// accumulate and never interrupt a run. Everything else — an infeasible
// allocation, a broken strategy, an iteration limit — aborts the run with
// the failing timestep attached to the error.
package engine

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/audit"
	"github.com/jlillywh/hydrosim/pkg/cache"
	"github.com/jlillywh/hydrosim/pkg/domain"
	"github.com/jlillywh/hydrosim/pkg/logger"
	"github.com/jlillywh/hydrosim/pkg/metrics"
	"github.com/jlillywh/hydrosim/pkg/solver"
	"github.com/jlillywh/hydrosim/pkg/telemetry"
)

// Settings are the run parameters that shape the simulation loop.
type Settings struct {
	// Timesteps is the number of days to simulate. Required.
	Timesteps int

	// LookaheadDays is the planning horizon H. Values below 2 select
	// single-period operation.
	LookaheadDays int

	// PerfectForesight feeds future horizon days by peeking at the climate
	// supplier and the node strategies. When false, the current day's
	// boundary data repeats across the horizon (persistence forecast).
	PerfectForesight bool

	// RollingHorizon re-plans a full H-day window every day. When false,
	// the horizon is block-anchored and shrinks towards the block boundary.
	RollingHorizon bool
}

// Config assembles an engine from its parts. Network and Climate are
// required; everything else has a working default.
type Config struct {
	Network  *domain.Network
	Climate  domain.ClimateSupplier
	Settings Settings

	// Solver options; nil selects the solver defaults. The carryover cost
	// must stay strictly between the demand and spill costs.
	Solver *solver.Options

	// Recorder persists the run as it happens. Optional; persistence
	// failures are logged and never stop a simulation.
	Recorder Recorder

	// Cache memoizes allocations keyed by problem content. Optional. Build
	// it with the same carryover cost as the solver or lookups will miss.
	Cache *cache.AllocationCache

	// Journal records run lifecycle events. Optional.
	Journal *audit.Journal

	Log *slog.Logger
}

// Engine owns one run over one network. It is not safe for concurrent use:
// a run mutates the network state day by day.
type Engine struct {
	network  *domain.Network
	climate  domain.ClimateSupplier
	solver   *solver.Solver
	settings Settings

	recorder Recorder
	cache    *cache.AllocationCache
	journal  *audit.Journal
	log      *slog.Logger

	runID    string
	timestep int
	records  []*Record
	warnings []*apperror.Error
}

// New validates the configuration and prepares a run. Every engine carries
// its own run identifier from birth.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, apperror.New(apperror.CodeNilInput, "engine requires a configuration")
	}
	if cfg.Network == nil {
		return nil, apperror.New(apperror.CodeNilInput, "engine requires a network")
	}
	if cfg.Climate == nil {
		return nil, apperror.New(apperror.CodeNilInput, "engine requires a climate supplier")
	}
	if cfg.Settings.Timesteps < 1 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"timesteps must be positive, got %d", cfg.Settings.Timesteps)
	}

	carryover := domain.CostStorage
	if cfg.Solver != nil && cfg.Solver.CarryoverCost != 0 {
		carryover = cfg.Solver.CarryoverCost
	}
	if err := domain.ValidateCostOrder(domain.CostDemand, carryover, domain.CostSpill); err != nil {
		return nil, err
	}

	settings := cfg.Settings
	if settings.LookaheadDays < 1 {
		settings.LookaheadDays = 1
	}

	log := cfg.Log
	if log == nil {
		log = logger.Log
	}

	return &Engine{
		network:  cfg.Network,
		climate:  cfg.Climate,
		solver:   solver.New(cfg.Solver),
		settings: settings,
		recorder: cfg.Recorder,
		cache:    cfg.Cache,
		journal:  cfg.Journal,
		log:      log,
		runID:    uuid.NewString(),
	}, nil
}

// RunID returns the identifier stamped on every artifact of this run.
func (e *Engine) RunID() string { return e.runID }

// Timestep returns the number of committed days.
func (e *Engine) Timestep() int { return e.timestep }

// Run simulates until the requested number of days is committed, the input
// data runs out, or a fatal error occurs. On a fatal error the results
// accumulated so far are returned alongside the error.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.Run")
	defer span.End()
	span.SetAttributes(telemetry.RunAttributes(e.runID, e.network.Name, e.settings.Timesteps, e.settings.LookaheadDays)...)

	started := time.Now()
	e.log.Info("run started",
		"run_id", e.runID,
		"network", e.network.Name,
		"timesteps", e.settings.Timesteps,
		"lookahead_days", e.settings.LookaheadDays,
		"rolling_horizon", e.settings.RollingHorizon,
		"perfect_foresight", e.settings.PerfectForesight,
	)
	if e.recorder != nil {
		if err := e.recorder.RunStarted(ctx, e.runID, e.network.Name, started); err != nil {
			e.log.Warn("run registration failed", "run_id", e.runID, "error", err)
		}
	}

	for e.timestep < e.settings.Timesteps {
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, started, StatusFailed, err)
		}
		if _, err := e.Step(ctx); err != nil {
			if apperror.Is(err, apperror.CodeDataExhausted) {
				return e.finish(ctx, started, StatusTruncated, err)
			}
			return e.finish(ctx, started, StatusFailed, err)
		}
	}
	return e.finish(ctx, started, StatusCompleted, nil)
}

// finish closes the run: results, summary, journal, metrics, persistence.
func (e *Engine) finish(ctx context.Context, started time.Time, status Status, cause error) (*Results, error) {
	finished := time.Now()
	elapsed := finished.Sub(started)

	results := &Results{
		RunID:            e.runID,
		Network:          e.network.Name,
		Status:           status,
		StartedAt:        started,
		FinishedAt:       finished,
		PlannedTimesteps: e.settings.Timesteps,
		Timesteps:        e.timestep,
		Records:          e.records,
		Warnings:         e.warnings,
		Summary:          Summarize(e.records),
	}

	metrics.Get().RecordRun(string(status), elapsed)

	switch status {
	case StatusCompleted:
		e.journal.RunCompleted(ctx, e.runID, e.network.Name, e.timestep, elapsed)
		e.log.Info("run completed",
			"run_id", e.runID,
			"timesteps", e.timestep,
			"warnings", len(e.warnings),
			"duration", elapsed,
		)
	case StatusTruncated:
		e.journal.RunTruncated(ctx, e.runID, e.network.Name, e.timestep, elapsed, cause)
		e.log.Warn("run truncated, input data exhausted",
			"run_id", e.runID,
			"timesteps", e.timestep,
			"planned", e.settings.Timesteps,
			"error", cause,
		)
	case StatusFailed:
		e.journal.RunFailed(ctx, e.runID, e.network.Name, e.timestep, elapsed, cause)
		e.log.Error("run failed",
			"run_id", e.runID,
			"timestep", e.timestep,
			"error", cause,
		)
	}

	if e.recorder != nil {
		if err := e.recorder.RunFinished(ctx, e.runID, results); err != nil {
			e.log.Warn("run results not persisted", "run_id", e.runID, "error", err)
		}
	}

	if status == StatusFailed {
		return results, cause
	}
	return results, nil
}

// Step advances the simulation by exactly one day through the five phases:
// climate, node state, link bounds, allocation, commit. The returned record
// describes the committed day.
func (e *Engine) Step(ctx context.Context) (*Record, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.Step")
	defer span.End()
	span.SetAttributes(telemetry.StepAttributes(e.runID, e.timestep)...)

	start := time.Now()

	drv, err := e.climate.Next()
	if err != nil {
		return nil, e.wrap(err, "climate supplier has no drivers for the day")
	}

	for _, n := range e.network.Nodes() {
		if err := n.Step(drv); err != nil {
			return nil, e.wrap(err, "node state update failed")
		}
	}

	bounds, err := e.linkBounds()
	if err != nil {
		return nil, e.wrap(err, "link bounds computation failed")
	}

	days, err := e.horizonDays()
	if err != nil {
		return nil, e.wrap(err, "horizon assembly failed")
	}

	prob := &solver.Problem{Network: e.network, Bounds: bounds, Days: days}
	res, hit, err := e.allocate(ctx, prob)
	if err != nil {
		e.journal.SolveFailed(ctx, e.runID, e.timestep, err)
		return nil, e.wrap(err, "allocation failed")
	}

	e.commit(res)
	rec := e.newRecord(drv, res, hit)
	e.records = append(e.records, rec)
	e.warnings = append(e.warnings, rec.Warnings...)
	e.timestep++

	m := metrics.Get()
	m.RecordTimestep(time.Since(start))
	m.RecordNetworkState(rec.Levels, rec.Deficits, rec.Spills)

	if e.recorder != nil {
		if err := e.recorder.RecordTimestep(ctx, e.runID, rec); err != nil {
			e.log.Warn("timestep not persisted",
				"run_id", e.runID, "timestep", rec.Timestep, "error", err)
		}
	}

	e.log.Debug("timestep committed",
		"run_id", e.runID,
		"timestep", rec.Timestep,
		"horizon", rec.Horizon,
		"cost", rec.Cost,
		"cached", rec.Cached,
	)
	return rec, nil
}

// wrap attaches the failing timestep while preserving the error code, so
// data exhaustion stays recognizable after wrapping.
func (e *Engine) wrap(err error, msg string) error {
	return apperror.Wrap(err, apperror.Code(err), msg).WithDetails("timestep", e.timestep)
}

// linkBounds funnels the constraints of every link at the current network
// state.
func (e *Engine) linkBounds() (map[string]domain.Bounds, error) {
	bounds := make(map[string]domain.Bounds, e.network.LinkCount())
	for _, l := range e.network.Links() {
		b, err := e.network.LinkBounds(l)
		if err != nil {
			return nil, err
		}
		bounds[l.ID] = b
	}
	return bounds, nil
}

// horizonLength returns how many days the next solve plans over.
func (e *Engine) horizonLength() int {
	h := e.settings.LookaheadDays
	if h <= 1 {
		return 1
	}
	if e.settings.RollingHorizon {
		return h
	}
	// Блок с якорем: H, H-1, ..., 1, затем новый блок
	return h - e.timestep%h
}

// horizonDays assembles the boundary data for the solve. Day one always
// comes from the freshly stepped node states; later days come from the
// forecast.
func (e *Engine) horizonDays() ([]solver.DayData, error) {
	today := solver.DayData{
		Generation: make(map[string]float64),
		Requests:   make(map[string]float64),
	}
	for _, n := range e.network.Sources() {
		today.Generation[n.ID] = n.Source.GeneratedInflow
	}
	for _, n := range e.network.Demands() {
		today.Requests[n.ID] = n.Demand.RequestedAmount
	}

	h := e.horizonLength()
	days := make([]solver.DayData, 0, h)
	days = append(days, today)

	if !e.settings.PerfectForesight {
		// Прогноз-персистентность: текущие сутки замещают каждые будущие
		for k := 1; k < h; k++ {
			days = append(days, solver.DayData{
				Generation: maps.Clone(today.Generation),
				Requests:   maps.Clone(today.Requests),
			})
		}
		return days, nil
	}

	for k := 1; k < h; k++ {
		future, err := e.climate.Peek(k)
		if err != nil {
			if apperror.Is(err, apperror.CodeDataExhausted) {
				break // plan only as far as the data reaches
			}
			return nil, err
		}
		day, ok, err := e.futureDay(future, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		days = append(days, day)
	}
	return days, nil
}

// futureDay asks every strategy for its forecast ahead days out. A strategy
// running out of data cuts the horizon instead of failing the step.
func (e *Engine) futureDay(future domain.Drivers, ahead int) (solver.DayData, bool, error) {
	day := solver.DayData{
		Generation: make(map[string]float64),
		Requests:   make(map[string]float64),
	}
	for _, n := range e.network.Sources() {
		v, err := n.Source.Strategy.Peek(future, ahead)
		if err != nil {
			if apperror.Is(err, apperror.CodeDataExhausted) {
				return solver.DayData{}, false, nil
			}
			return solver.DayData{}, false,
				apperror.Wrap(err, apperror.Code(err), "inflow forecast failed").WithField(n.ID)
		}
		day.Generation[n.ID] = v
	}
	for _, n := range e.network.Demands() {
		v, err := n.Demand.Strategy.Peek(future, ahead)
		if err != nil {
			if apperror.Is(err, apperror.CodeDataExhausted) {
				return solver.DayData{}, false, nil
			}
			return solver.DayData{}, false,
				apperror.Wrap(err, apperror.Code(err), "demand forecast failed").WithField(n.ID)
		}
		day.Requests[n.ID] = v
	}
	return day, true, nil
}

// allocate runs the solve behind the allocation cache when one is attached.
func (e *Engine) allocate(ctx context.Context, p *solver.Problem) (*solver.Result, bool, error) {
	mode := "single"
	if len(p.Days) > 1 {
		mode = "lookahead"
	}
	m := metrics.Get()

	if e.cache != nil {
		res, hit, err := e.cache.Lookup(ctx, p)
		if err != nil {
			e.log.Warn("allocation cache lookup failed", "error", err)
		}
		m.RecordCacheLookup(hit)
		if hit {
			return res, true, nil
		}
	}

	timer := metrics.NewTimer(m.SolveDuration, mode)
	var (
		res *solver.Result
		err error
	)
	if len(p.Days) == 1 {
		res, err = e.solver.SinglePeriod(ctx, p)
	} else {
		res, err = e.solver.Lookahead(ctx, p)
	}
	timer.ObserveDuration()
	if err != nil {
		m.RecordSolve(mode, solveStatus(err))
		return nil, false, err
	}
	m.RecordSolve(mode, "success")
	m.RecordProblemSize(mode, res.Nodes, res.Arcs)

	if e.cache != nil {
		if err := e.cache.Store(ctx, p, res); err != nil {
			e.log.Warn("allocation cache store failed", "error", err)
		}
	}
	return res, false, nil
}

// solveStatus maps solver failures onto metric labels.
func solveStatus(err error) string {
	switch apperror.Code(err) {
	case apperror.CodeInfeasible:
		return "infeasible"
	case apperror.CodeDegenerate:
		return "degenerate"
	case apperror.CodeIterationLimit:
		return "iteration_limit"
	default:
		return "error"
	}
}

// commit applies the first day of the optimal plan to the network. This is
// the only place the engine moves water.
func (e *Engine) commit(res *solver.Result) {
	for _, n := range e.network.Storages() {
		if level, ok := res.Levels[n.ID]; ok {
			n.Storage.Level = level
		}
	}
	for _, n := range e.network.Demands() {
		n.Demand.DeliveredAmount = res.Delivered[n.ID]
	}
	for _, l := range e.network.Links() {
		l.Flow = res.Flows[l.ID]
	}
}

// deadPoolWarnings flags storages whose committed level landed inside the
// configured margin above the dead pool. A zero margin disables the check;
// the solver already warns once the level drops below the dead pool itself.
func (e *Engine) deadPoolWarnings() []*apperror.Error {
	var warns []*apperror.Error
	for _, n := range e.network.Storages() {
		s := n.Storage
		if s.DeadPoolMargin <= 0 {
			continue
		}
		if s.Level >= s.MinCapacity && s.Level < s.MinCapacity+s.DeadPoolMargin {
			warns = append(warns, apperror.NewWarningf(apperror.CodeDeadPoolNear,
				"storage %q holds %g, within %g of dead pool %g",
				n.ID, s.Level, s.DeadPoolMargin, s.MinCapacity).WithField(n.ID))
		}
	}
	return warns
}

// newRecord snapshots the committed day. Solver maps are single-use and
// adopted as is; node-state maps are built fresh.
func (e *Engine) newRecord(drv domain.Drivers, res *solver.Result, cached bool) *Record {
	rec := &Record{
		Timestep:      e.timestep,
		Date:          drv.Date,
		Precipitation: drv.Precipitation,
		TempMax:       drv.TempMax,
		TempMin:       drv.TempMin,
		ET0:           drv.ReferenceET0,
		Flows:         res.Flows,
		Levels:        res.Levels,
		Delivered:     res.Delivered,
		Spills:        res.Spills,
		Evaporation:   res.Evaporation,
		Inflows:       make(map[string]float64),
		Requests:      make(map[string]float64),
		Deficits:      make(map[string]float64),
		Horizon:       res.Horizon,
		Cost:          res.Cost,
		Cached:        cached,
		SolveTime:     res.Duration,
	}
	for _, n := range e.network.Sources() {
		rec.Inflows[n.ID] = n.Source.GeneratedInflow
	}
	for _, n := range e.network.Demands() {
		rec.Requests[n.ID] = n.Demand.RequestedAmount
		rec.Deficits[n.ID] = n.Demand.Deficit()
	}

	margin := e.deadPoolWarnings()
	rec.Warnings = make([]*apperror.Error, 0, len(res.Warnings)+len(margin))
	rec.Warnings = append(rec.Warnings, res.Warnings...)
	rec.Warnings = append(rec.Warnings, margin...)
	return rec
}
