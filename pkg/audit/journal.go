// Package audit provides components for capturing, storing, and querying audit logs.
// This file implements the Journal, a convenience layer that records simulation
// lifecycle events without callers assembling entries by hand.
package audit

import (
	"context"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/logger"
)

// Journal records simulation lifecycle events through an audit Logger.
// Recording is best-effort: failures are logged and never propagate to the
// caller. A nil Journal is valid and records nothing, so call sites do not
// need guards when auditing is disabled.
type Journal struct {
	logger  Logger
	service string
}

// NewJournal returns a Journal writing through the given audit logger.
func NewJournal(l Logger) *Journal {
	return &Journal{logger: l, service: "hydrosim"}
}

// RunCompleted records a simulation run that finished all requested timesteps.
func (j *Journal) RunCompleted(ctx context.Context, runID, network string, timesteps int, d time.Duration) {
	if !j.enabled() {
		return
	}
	j.record(ctx, NewEntry().
		Service(j.service).
		Operation("engine.Run").
		Action(ActionRun).
		Outcome(OutcomeSuccess).
		Run(runID).
		Resource("network", network).
		Duration(d).
		Meta("timesteps", timesteps).
		Build())
}

// RunTruncated records a run that ended early because a driving series was exhausted.
func (j *Journal) RunTruncated(ctx context.Context, runID, network string, timesteps int, d time.Duration, err error) {
	if !j.enabled() {
		return
	}
	b := NewEntry().
		Service(j.service).
		Operation("engine.Run").
		Action(ActionRun).
		Outcome(OutcomeTruncated).
		Run(runID).
		Resource("network", network).
		Duration(d).
		Meta("timesteps", timesteps)
	if err != nil {
		b = b.Error(string(apperror.Code(err)), err.Error())
	}
	j.record(ctx, b.Build())
}

// RunFailed records a run that aborted with an error at the given timestep.
func (j *Journal) RunFailed(ctx context.Context, runID, network string, timestep int, d time.Duration, err error) {
	if !j.enabled() {
		return
	}
	b := NewEntry().
		Service(j.service).
		Operation("engine.Run").
		Action(ActionRun).
		Outcome(OutcomeFailure).
		Run(runID).
		Resource("network", network).
		Timestep(timestep).
		Duration(d)
	if err != nil {
		b = b.Error(string(apperror.Code(err)), err.Error())
	}
	j.record(ctx, b.Build())
}

// SolveFailed records a single allocation solve that failed within a run.
func (j *Journal) SolveFailed(ctx context.Context, runID string, timestep int, err error) {
	if !j.enabled() {
		return
	}
	b := NewEntry().
		Service(j.service).
		Operation("engine.Step").
		Action(ActionSolve).
		Outcome(OutcomeFailure).
		Run(runID).
		Timestep(timestep)
	if err != nil {
		b = b.Error(string(apperror.Code(err)), err.Error())
	}
	j.record(ctx, b.Build())
}

// Validated records the outcome of a scenario validation pass.
func (j *Journal) Validated(ctx context.Context, network string, warnings int, err error) {
	if !j.enabled() {
		return
	}
	b := NewEntry().
		Service(j.service).
		Operation("config.Validate").
		Action(ActionValidate).
		Resource("network", network).
		Meta("warnings", warnings)
	if err != nil {
		b = b.Outcome(OutcomeFailure).Error(string(apperror.Code(err)), err.Error())
	} else {
		b = b.Outcome(OutcomeSuccess)
	}
	j.record(ctx, b.Build())
}

// Exported records an export of run results to an external destination.
func (j *Journal) Exported(ctx context.Context, runID, format, destination string, err error) {
	if !j.enabled() {
		return
	}
	b := NewEntry().
		Service(j.service).
		Operation("export.Write").
		Action(ActionExport).
		Run(runID).
		Resource("export", destination).
		Meta("format", format)
	if err != nil {
		b = b.Outcome(OutcomeFailure).Error(string(apperror.Code(err)), err.Error())
	} else {
		b = b.Outcome(OutcomeSuccess)
	}
	j.record(ctx, b.Build())
}

// ReplicateCompleted records a finished replicate within a Monte Carlo batch.
func (j *Journal) ReplicateCompleted(ctx context.Context, runID string, index int, seed int64, timesteps int, d time.Duration) {
	if !j.enabled() {
		return
	}
	j.record(ctx, NewEntry().
		Service(j.service).
		Operation("montecarlo.Run").
		Action(ActionReplicate).
		Outcome(OutcomeSuccess).
		Run(runID).
		Duration(d).
		Meta("replicate", index).
		Meta("seed", seed).
		Meta("timesteps", timesteps).
		Build())
}

func (j *Journal) enabled() bool {
	return j != nil && j.logger != nil
}

func (j *Journal) record(ctx context.Context, entry *Entry) {
	if err := j.logger.Log(ctx, entry); err != nil {
		logger.Log.Warn("Failed to record audit entry",
			"action", entry.Action,
			"operation", entry.Operation,
			"error", err,
		)
	}
}
