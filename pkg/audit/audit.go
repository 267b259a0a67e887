// Package audit provides components for capturing, storing, and querying audit logs.
// It defines the structure of an audit entry, actions, outcomes, and interfaces
// for different logging backends.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action represents the type of action performed in an audit event.
type Action string

const (
	// ActionRun indicates a full simulation run over a scenario.
	ActionRun Action = "RUN"
	// ActionSolve indicates a single allocation solve over the network.
	ActionSolve Action = "SOLVE"
	// ActionValidate indicates a scenario or network validation pass.
	ActionValidate Action = "VALIDATE"
	// ActionExport indicates an export of run results to an external format.
	ActionExport Action = "EXPORT"
	// ActionReplicate indicates a single replicate within a Monte Carlo batch.
	ActionReplicate Action = "REPLICATE"
)

// Outcome represents the result of an audit action.
type Outcome string

const (
	// OutcomeSuccess indicates that the action completed successfully.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailure indicates that the action failed due to an error.
	OutcomeFailure Outcome = "FAILURE"
	// OutcomeTruncated indicates that a run ended early because its driving
	// series ran out of data before the requested number of timesteps.
	OutcomeTruncated Outcome = "TRUNCATED"
)

// Entry represents a single audit log record, capturing details about an event.
type Entry struct {
	ID           string         `json:"id"`                      // Unique identifier for the audit entry.
	Timestamp    time.Time      `json:"timestamp"`               // Time when the event occurred.
	Service      string         `json:"service"`                 // Name of the service that generated the audit event.
	Operation    string         `json:"operation"`               // Specific operation invoked (e.g., "engine.Run").
	Action       Action         `json:"action"`                  // Type of action performed (e.g., RUN, SOLVE).
	Outcome      Outcome        `json:"outcome"`                 // Result of the action (e.g., SUCCESS, FAILURE).
	RunID        string         `json:"run_id,omitempty"`        // Identifier of the simulation run this event belongs to.
	Timestep     *int           `json:"timestep,omitempty"`      // Timestep within the run, when the event is step-scoped.
	Resource     string         `json:"resource,omitempty"`      // Type of resource affected (e.g., "scenario", "network").
	ResourceID   string         `json:"resource_id,omitempty"`   // ID of the resource affected.
	DurationMs   int64          `json:"duration_ms"`             // Duration of the operation in milliseconds.
	ErrorCode    string         `json:"error_code,omitempty"`    // Application-specific error code if the outcome is FAILURE.
	ErrorMessage string         `json:"error_message,omitempty"` // Human-readable error message if the outcome is FAILURE.
	Metadata     map[string]any `json:"metadata,omitempty"`      // Additional arbitrary key-value metadata.
}

// Logger is the interface that audit loggers must implement.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, entry *Entry) error

	// Query retrieves audit logs based on a filter.
	// Not all loggers may support querying.
	Query(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// Close shuts down the logger and releases any resources.
	Close() error
}

// QueryFilter defines criteria for querying audit log entries.
type QueryFilter struct {
	StartTime  *time.Time // Start time for the query range (inclusive).
	EndTime    *time.Time // End time for the query range (exclusive).
	Service    string     // Filter by service name.
	Operation  string     // Filter by operation.
	Action     Action     // Filter by action type.
	Outcome    Outcome    // Filter by action outcome.
	RunID      string     // Filter by simulation run identifier.
	Resource   string     // Filter by resource type.
	ResourceID string     // Filter by resource ID.
	Limit      int        // Maximum number of results to return.
	Offset     int        // Number of results to skip.
}

// Config holds configuration parameters for the audit logger.
type Config struct {
	Enabled     bool          `koanf:"enabled"`      // If true, auditing is active.
	Backend     string        `koanf:"backend"`      // The logging backend to use ("postgres", "file", "stdout").
	FilePath    string        `koanf:"file_path"`    // Path to the log file, if backend is "file".
	MaxSize     int           `koanf:"max_size"`     // Maximum size of the log file in MB before rotation.
	MaxAge      int           `koanf:"max_age"`      // Maximum age of log files in days before deletion.
	Compress    bool          `koanf:"compress"`     // Whether to compress rotated log files.
	BufferSize  int           `koanf:"buffer_size"`  // Size of the internal buffer for asynchronous logging.
	BatchSize   int           `koanf:"batch_size"`   // Maximum number of entries written per flush, for batching backends.
	FlushPeriod time.Duration `koanf:"flush_period"` // Period to flush buffered entries to the backend.
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Backend:     "stdout",
		MaxSize:     100,
		MaxAge:      30,
		BufferSize:  1000,
		BatchSize:   100,
		FlushPeriod: 5 * time.Second,
	}
}

// Builder provides a fluent API for constructing an Entry object.
type Builder struct {
	entry *Entry
}

// NewEntry creates and returns a new Builder initialized with a timestamp and an empty metadata map.
func NewEntry() *Builder {
	return &Builder{
		entry: &Entry{
			Timestamp: time.Now(),
			Metadata:  make(map[string]any),
		},
	}
}

// Service sets the service name for the audit entry.
func (b *Builder) Service(s string) *Builder {
	b.entry.Service = s
	return b
}

// Operation sets the operation name for the audit entry.
func (b *Builder) Operation(op string) *Builder {
	b.entry.Operation = op
	return b
}

// Action sets the action type for the audit entry.
func (b *Builder) Action(a Action) *Builder {
	b.entry.Action = a
	return b
}

// Outcome sets the outcome for the audit entry.
func (b *Builder) Outcome(o Outcome) *Builder {
	b.entry.Outcome = o
	return b
}

// Run sets the simulation run identifier for the audit entry.
func (b *Builder) Run(runID string) *Builder {
	b.entry.RunID = runID
	return b
}

// Timestep sets the run timestep the audit entry refers to.
// Timestep zero is a valid value and is preserved.
func (b *Builder) Timestep(t int) *Builder {
	b.entry.Timestep = &t
	return b
}

// Resource sets the resource type and ID for the audit entry.
func (b *Builder) Resource(resource, resourceID string) *Builder {
	b.entry.Resource = resource
	b.entry.ResourceID = resourceID
	return b
}

// Duration sets the duration of the operation in milliseconds for the audit entry.
func (b *Builder) Duration(d time.Duration) *Builder {
	b.entry.DurationMs = d.Milliseconds()
	return b
}

// Error sets the error code and message if the outcome was a failure.
func (b *Builder) Error(code, message string) *Builder {
	b.entry.ErrorCode = code
	b.entry.ErrorMessage = message
	return b
}

// Meta adds a key-value pair to the metadata map of the audit entry.
func (b *Builder) Meta(key string, value any) *Builder {
	b.entry.Metadata[key] = value
	return b
}

// Build finalizes the Entry construction and returns the Entry object.
// It generates a unique ID if one is not already set.
func (b *Builder) Build() *Entry {
	if b.entry.ID == "" {
		b.entry.ID = uuid.NewString()
	}
	return b.entry
}
