package engine

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/audit"
	"github.com/jlillywh/hydrosim/pkg/logger"
	"github.com/jlillywh/hydrosim/pkg/telemetry"
)

// Builder constructs a fresh engine for one replicate. The seed must drive
// every stochastic component the replicate owns, so that a replicate is
// reproducible from its seed alone.
type Builder func(seed int64) (*Engine, error)

// MonteCarlo runs an ensemble of independent replicates of one scenario.
// Replicates execute sequentially, so a given base seed always produces
// the same ensemble.
type MonteCarlo struct {
	// Replicates is the ensemble size. Required.
	Replicates int

	// BaseSeed seeds replicate i with BaseSeed+i.
	BaseSeed int64

	// Build constructs the engine for one replicate.
	Build Builder

	// Journal records replicate completions. Optional.
	Journal *audit.Journal

	Log *slog.Logger
}

// ReplicateResult captures one replicate's outcome. A failed replicate
// keeps its error and carries no summary.
type ReplicateResult struct {
	Index     int      `json:"index"`
	Seed      int64    `json:"seed"`
	RunID     string   `json:"run_id"`
	Status    Status   `json:"status"`
	Timesteps int      `json:"timesteps"`
	Summary   *Summary `json:"summary,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Ensemble is the aggregated outcome of a Monte Carlo run. The per-node
// distributions cover only replicates that produced results.
type Ensemble struct {
	Replicates []ReplicateResult `json:"replicates"`
	Completed  int               `json:"completed"`
	Truncated  int               `json:"truncated"`
	Failed     int               `json:"failed"`

	TotalDelivered map[string]Stats `json:"total_delivered,omitempty"`
	TotalDeficit   map[string]Stats `json:"total_deficit,omitempty"`
	Reliability    map[string]Stats `json:"reliability,omitempty"`
	TotalSpill     map[string]Stats `json:"total_spill,omitempty"`
	MinLevel       map[string]Stats `json:"min_level,omitempty"`
	FinalLevel     map[string]Stats `json:"final_level,omitempty"`
}

// Stats describes an ensemble distribution. Percentiles use the
// nearest-rank method.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P10   float64 `json:"p10"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
}

// Run executes the ensemble. A replicate failure is recorded and the
// ensemble continues; Run itself fails only when the configuration is
// unusable or no replicate produces results.
func (mc *MonteCarlo) Run(ctx context.Context) (*Ensemble, error) {
	if mc.Build == nil {
		return nil, apperror.New(apperror.CodeNilInput, "monte carlo requires an engine builder")
	}
	if mc.Replicates < 1 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"replicates must be positive, got %d", mc.Replicates)
	}
	log := mc.Log
	if log == nil {
		log = logger.Log
	}

	ctx, span := telemetry.StartSpan(ctx, "engine.MonteCarlo")
	defer span.End()
	span.SetAttributes(telemetry.EnsembleAttributes(mc.Replicates, mc.BaseSeed)...)

	ens := &Ensemble{Replicates: make([]ReplicateResult, 0, mc.Replicates)}
	var lastErr error

	for i := 0; i < mc.Replicates; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seed := mc.BaseSeed + int64(i)

		eng, err := mc.Build(seed)
		if err != nil {
			// Билдер, не способный собрать движок — проблема конфигурации,
			// а не стохастический шум реплики
			return nil, apperror.Wrap(err, apperror.Code(err),
				"replicate engine construction failed").WithDetails("replicate", i)
		}

		started := time.Now()
		results, err := eng.Run(ctx)
		rr := ReplicateResult{Index: i, Seed: seed, RunID: eng.RunID()}
		if err != nil {
			rr.Status = StatusFailed
			rr.Error = err.Error()
			if results != nil {
				rr.Timesteps = results.Timesteps
			}
			ens.Failed++
			lastErr = err
			log.Warn("replicate failed", "replicate", i, "seed", seed, "error", err)
		} else {
			rr.Status = results.Status
			rr.Timesteps = results.Timesteps
			rr.Summary = results.Summary
			if results.Status == StatusTruncated {
				ens.Truncated++
			} else {
				ens.Completed++
			}
			mc.Journal.ReplicateCompleted(ctx, eng.RunID(), i, seed, results.Timesteps, time.Since(started))
			log.Info("replicate finished",
				"replicate", i,
				"seed", seed,
				"status", string(results.Status),
				"timesteps", results.Timesteps,
			)
		}
		ens.Replicates = append(ens.Replicates, rr)
	}

	if ens.Completed+ens.Truncated == 0 {
		return nil, apperror.Wrap(lastErr, apperror.Code(lastErr), "every replicate failed")
	}
	ens.aggregate()
	return ens, nil
}

// aggregate builds the per-node distributions from replicate summaries.
func (ens *Ensemble) aggregate() {
	delivered := map[string][]float64{}
	deficit := map[string][]float64{}
	reliability := map[string][]float64{}
	spill := map[string][]float64{}
	minLevel := map[string][]float64{}
	finalLevel := map[string][]float64{}

	for _, rr := range ens.Replicates {
		if rr.Summary == nil {
			continue
		}
		for id, v := range rr.Summary.TotalDelivered {
			delivered[id] = append(delivered[id], v)
		}
		for id, v := range rr.Summary.TotalDeficit {
			deficit[id] = append(deficit[id], v)
		}
		for id, v := range rr.Summary.Reliability {
			reliability[id] = append(reliability[id], v)
		}
		for id, v := range rr.Summary.TotalSpill {
			spill[id] = append(spill[id], v)
		}
		for id, v := range rr.Summary.MinLevel {
			minLevel[id] = append(minLevel[id], v)
		}
		for id, v := range rr.Summary.FinalLevel {
			finalLevel[id] = append(finalLevel[id], v)
		}
	}

	ens.TotalDelivered = statsByKey(delivered)
	ens.TotalDeficit = statsByKey(deficit)
	ens.Reliability = statsByKey(reliability)
	ens.TotalSpill = statsByKey(spill)
	ens.MinLevel = statsByKey(minLevel)
	ens.FinalLevel = statsByKey(finalLevel)
}

func statsByKey(samples map[string][]float64) map[string]Stats {
	if len(samples) == 0 {
		return nil
	}
	out := make(map[string]Stats, len(samples))
	for id, vs := range samples {
		out[id] = ComputeStats(vs)
	}
	return out
}

// ComputeStats summarizes a sample with nearest-rank percentiles.
func ComputeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Stats{
		Count: len(sorted),
		Mean:  sum / float64(len(sorted)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P10:   nearestRank(sorted, 0.10),
		P50:   nearestRank(sorted, 0.50),
		P90:   nearestRank(sorted, 0.90),
	}
}

// nearestRank returns the smallest sample value with at least share p of
// the sample at or below it.
func nearestRank(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
