package engine

import (
	"context"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Status classifies how a run ended.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusTruncated Status = "truncated"
	StatusFailed    Status = "failed"
)

// Recorder receives a run as it unfolds. Implementations persist runs; the
// engine treats every recorder error as non-fatal and keeps simulating.
type Recorder interface {
	RunStarted(ctx context.Context, runID, network string, startedAt time.Time) error
	RecordTimestep(ctx context.Context, runID string, rec *Record) error
	RunFinished(ctx context.Context, runID string, results *Results) error
}

// Record is the committed outcome of one simulated day. All volumes are in
// cubic metres per day, keyed by node or link identifier.
type Record struct {
	Timestep int       `json:"timestep"`
	Date     time.Time `json:"date"`

	Precipitation float64 `json:"precipitation"`
	TempMax       float64 `json:"temp_max"`
	TempMin       float64 `json:"temp_min"`
	ET0           float64 `json:"et0"`

	Flows       map[string]float64 `json:"flows"`
	Levels      map[string]float64 `json:"levels,omitempty"`
	Inflows     map[string]float64 `json:"inflows,omitempty"`
	Requests    map[string]float64 `json:"requests,omitempty"`
	Delivered   map[string]float64 `json:"delivered,omitempty"`
	Deficits    map[string]float64 `json:"deficits,omitempty"`
	Spills      map[string]float64 `json:"spills,omitempty"`
	Evaporation map[string]float64 `json:"evaporation,omitempty"`

	Horizon   int               `json:"horizon"`
	Cost      float64           `json:"cost"`
	Cached    bool              `json:"cached,omitempty"`
	SolveTime time.Duration     `json:"solve_time"`
	Warnings  []*apperror.Error `json:"warnings,omitempty"`
}

// Results is the complete outcome of one run.
type Results struct {
	RunID            string            `json:"run_id"`
	Network          string            `json:"network"`
	Status           Status            `json:"status"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       time.Time         `json:"finished_at"`
	PlannedTimesteps int               `json:"planned_timesteps"`
	Timesteps        int               `json:"timesteps"`
	Records          []*Record         `json:"records"`
	Warnings         []*apperror.Error `json:"warnings,omitempty"`
	Summary          *Summary          `json:"summary"`
}

// Truncated reports whether the run ended early on exhausted input data.
func (r *Results) Truncated() bool { return r.Status == StatusTruncated }

// Summary aggregates a run per node: volume totals, level envelopes and
// delivery reliability.
type Summary struct {
	TotalInflow      map[string]float64 `json:"total_inflow,omitempty"`
	TotalRequested   map[string]float64 `json:"total_requested,omitempty"`
	TotalDelivered   map[string]float64 `json:"total_delivered,omitempty"`
	TotalDeficit     map[string]float64 `json:"total_deficit,omitempty"`
	TotalSpill       map[string]float64 `json:"total_spill,omitempty"`
	TotalEvaporation map[string]float64 `json:"total_evaporation,omitempty"`

	// Reliability is the share of simulated days a demand was served in
	// full; DeficitDays counts the rest.
	Reliability map[string]float64 `json:"reliability,omitempty"`
	DeficitDays map[string]int     `json:"deficit_days,omitempty"`

	MinLevel   map[string]float64 `json:"min_level,omitempty"`
	MaxLevel   map[string]float64 `json:"max_level,omitempty"`
	FinalLevel map[string]float64 `json:"final_level,omitempty"`

	TotalCost float64       `json:"total_cost"`
	SolveTime time.Duration `json:"solve_time"`
	CacheHits int           `json:"cache_hits"`
}

// Summarize aggregates per-day records into run totals. Full delivery is
// judged against the optimization tolerance, so float dust does not spoil
// a perfect reliability score.
func Summarize(records []*Record) *Summary {
	s := &Summary{
		TotalInflow:      make(map[string]float64),
		TotalRequested:   make(map[string]float64),
		TotalDelivered:   make(map[string]float64),
		TotalDeficit:     make(map[string]float64),
		TotalSpill:       make(map[string]float64),
		TotalEvaporation: make(map[string]float64),
		Reliability:      make(map[string]float64),
		DeficitDays:      make(map[string]int),
		MinLevel:         make(map[string]float64),
		MaxLevel:         make(map[string]float64),
		FinalLevel:       make(map[string]float64),
	}

	for _, rec := range records {
		for id, v := range rec.Inflows {
			s.TotalInflow[id] += v
		}
		for id, v := range rec.Requests {
			s.TotalRequested[id] += v
		}
		for id, v := range rec.Delivered {
			s.TotalDelivered[id] += v
		}
		for id, v := range rec.Spills {
			s.TotalSpill[id] += v
		}
		for id, v := range rec.Evaporation {
			s.TotalEvaporation[id] += v
		}
		for id, v := range rec.Deficits {
			s.TotalDeficit[id] += v
			if v > domain.Epsilon {
				s.DeficitDays[id]++
			}
		}
		for id, level := range rec.Levels {
			if cur, ok := s.MinLevel[id]; !ok || level < cur {
				s.MinLevel[id] = level
			}
			if cur, ok := s.MaxLevel[id]; !ok || level > cur {
				s.MaxLevel[id] = level
			}
			s.FinalLevel[id] = level
		}
		s.TotalCost += rec.Cost
		s.SolveTime += rec.SolveTime
		if rec.Cached {
			s.CacheHits++
		}
	}

	if n := len(records); n > 0 {
		for id := range s.TotalRequested {
			s.Reliability[id] = 1 - float64(s.DeficitDays[id])/float64(n)
		}
	}
	return s
}
