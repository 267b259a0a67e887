// Package audit provides components for capturing, storing, and querying audit logs.
// This file implements the PostgreSQL backend, which persists audit events to
// the audit_entries table and supports querying them back.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jlillywh/hydrosim/pkg/database"
	"github.com/jlillywh/hydrosim/pkg/logger"
)

// writeTimeout bounds a single background batch write to the database.
const writeTimeout = 5 * time.Second

// DBLogger implements the Logger interface by persisting audit events to
// PostgreSQL. It buffers events and writes them in batches for efficiency.
type DBLogger struct {
	db     database.DB
	config *Config
	buffer chan *Entry
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewDBLogger creates and initializes a new DBLogger on top of an existing
// database handle and starts a background process for buffering and writing
// audit events. The handle is owned by the caller and is not closed by Close.
func NewDBLogger(db database.DB, cfg *Config) *DBLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	l := &DBLogger{
		db:     db,
		config: cfg,
		buffer: make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.processLoop()

	return l
}

// Log sends an audit entry to the internal buffer for asynchronous writing.
// If the buffer is full, it attempts to insert the entry synchronously.
func (l *DBLogger) Log(ctx context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	select {
	case l.buffer <- entry:
		return nil
	default:
		// Buffer is full, insert directly (synchronously)
		return l.insertEntry(ctx, entry)
	}
}

// Query retrieves audit entries matching the filter, newest first.
func (l *DBLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Entry, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	// Build the WHERE clause from the populated filter fields.
	var (
		conds []string
		args  []any
	)
	argNum := 1

	if filter.StartTime != nil {
		conds = append(conds, fmt.Sprintf("ts >= $%d", argNum))
		args = append(args, *filter.StartTime)
		argNum++
	}
	if filter.EndTime != nil {
		conds = append(conds, fmt.Sprintf("ts < $%d", argNum))
		args = append(args, *filter.EndTime)
		argNum++
	}
	if filter.Service != "" {
		conds = append(conds, fmt.Sprintf("service = $%d", argNum))
		args = append(args, filter.Service)
		argNum++
	}
	if filter.Operation != "" {
		conds = append(conds, fmt.Sprintf("operation = $%d", argNum))
		args = append(args, filter.Operation)
		argNum++
	}
	if filter.Action != "" {
		conds = append(conds, fmt.Sprintf("action = $%d", argNum))
		args = append(args, string(filter.Action))
		argNum++
	}
	if filter.Outcome != "" {
		conds = append(conds, fmt.Sprintf("outcome = $%d", argNum))
		args = append(args, string(filter.Outcome))
		argNum++
	}
	if filter.RunID != "" {
		conds = append(conds, fmt.Sprintf("run_id = $%d", argNum))
		args = append(args, filter.RunID)
		argNum++
	}
	if filter.Resource != "" {
		conds = append(conds, fmt.Sprintf("resource = $%d", argNum))
		args = append(args, filter.Resource)
		argNum++
	}
	if filter.ResourceID != "" {
		conds = append(conds, fmt.Sprintf("resource_id = $%d", argNum))
		args = append(args, filter.ResourceID)
		argNum++
	}

	query := `
		SELECT
			id, ts, service, operation, action, outcome,
			run_id, timestep, resource, resource_id,
			duration_ms, error_code, error_message, metadata
		FROM audit_entries
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY ts DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, filter.Offset)

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var (
			action   string
			outcome  string
			timestep pgtype.Int4
			metadata []byte
		)

		err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Service,
			&e.Operation,
			&action,
			&outcome,
			&e.RunID,
			&timestep,
			&e.Resource,
			&e.ResourceID,
			&e.DurationMs,
			&e.ErrorCode,
			&e.ErrorMessage,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		e.Action = Action(action)
		e.Outcome = Outcome(outcome)
		if timestep.Valid {
			t := int(timestep.Int32)
			e.Timestep = &t
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// Close shuts down the DBLogger, stopping the background processing loop and
// flushing any remaining buffered events. The database handle stays open.
func (l *DBLogger) Close() error {
	close(l.done)
	l.wg.Wait() // Wait for processLoop to finish
	return nil
}

// processLoop is a goroutine that continuously reads from the buffer,
// aggregates entries into batches, and periodically flushes them to the
// database. On shutdown it drains the buffer before exiting.
func (l *DBLogger) processLoop() {
	defer l.wg.Done()

	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}
	batchSize := l.config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	batch := make([]*Entry, 0, batchSize)

	for {
		select {
		case <-l.done:
			// Drain anything still buffered and write the final batch.
			for {
				select {
				case entry := <-l.buffer:
					batch = append(batch, entry)
				default:
					l.writeBatch(batch)
					return
				}
			}

		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				l.writeBatch(batch)
				batch = make([]*Entry, 0, batchSize) // Reset batch
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.writeBatch(batch)
				batch = make([]*Entry, 0, batchSize) // Reset batch
			}
		}
	}
}

// writeBatch inserts a batch of entries, logging and skipping the ones that fail.
func (l *DBLogger) writeBatch(entries []*Entry) {
	if len(entries) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	for _, e := range entries {
		if err := l.insertEntry(ctx, e); err != nil {
			logger.Log.Warn("Failed to write audit entry", "error", err, "entry_id", e.ID)
		}
	}
}

// insertEntry writes a single audit entry to the audit_entries table.
func (l *DBLogger) insertEntry(ctx context.Context, e *Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
		metadata = data
	}

	query := `
		INSERT INTO audit_entries (
			id, ts, service, operation, action, outcome,
			run_id, timestep, resource, resource_id,
			duration_ms, error_code, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := l.db.Exec(ctx, query,
		e.ID,
		e.Timestamp,
		e.Service,
		e.Operation,
		string(e.Action),
		string(e.Outcome),
		e.RunID,
		e.Timestep,
		e.Resource,
		e.ResourceID,
		e.DurationMs,
		e.ErrorCode,
		e.ErrorMessage,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}
