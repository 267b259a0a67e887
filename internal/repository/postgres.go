package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/database"
	"github.com/jlillywh/hydrosim/pkg/engine"
	"github.com/jlillywh/hydrosim/pkg/telemetry"
)

// PostgresRunRepository PostgreSQL реализация
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

// execer покрывает database.DB и pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RunStarted регистрирует начало прогона
func (r *PostgresRunRepository) RunStarted(ctx context.Context, runID, network string, startedAt time.Time) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.RunStarted")
	defer span.End()

	query := `
		INSERT INTO runs (id, network, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.Exec(ctx, query, runID, network, StatusRunning, startedAt); err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	return nil
}

// RecordTimestep сохраняет одну потиместепную запись
func (r *PostgresRunRepository) RecordTimestep(ctx context.Context, runID string, rec *engine.Record) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.RecordTimestep")
	defer span.End()

	if err := insertRecord(ctx, r.db, runID, rec); err != nil {
		return fmt.Errorf("failed to record timestep %d: %w", rec.Timestep, err)
	}

	return nil
}

// RunFinished закрывает прогон: статус, итоги, сводка
func (r *PostgresRunRepository) RunFinished(ctx context.Context, runID string, results *engine.Results) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.RunFinished")
	defer span.End()

	summary, err := summaryJSON(results.Summary)
	if err != nil {
		return err
	}
	warnings, err := warningsJSON(results.Warnings)
	if err != nil {
		return err
	}

	var totalCost float64
	if results.Summary != nil {
		totalCost = results.Summary.TotalCost
	}

	query := `
		UPDATE runs
		SET status = $2, planned_timesteps = $3, timesteps = $4, total_cost = $5,
			finished_at = $6, summary = $7, warnings = $8, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		runID,
		string(results.Status),
		results.PlannedTimesteps,
		results.Timesteps,
		totalCost,
		results.FinishedAt,
		summary,
		warnings,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// SaveResults сохраняет завершённый прогон одной транзакцией
func (r *PostgresRunRepository) SaveResults(ctx context.Context, results *engine.Results) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.SaveResults")
	defer span.End()

	summary, err := summaryJSON(results.Summary)
	if err != nil {
		return 0, err
	}
	warnings, err := warningsJSON(results.Warnings)
	if err != nil {
		return 0, err
	}

	var totalCost float64
	if results.Summary != nil {
		totalCost = results.Summary.TotalCost
	}

	return database.WithTransactionResult(ctx, r.db, func(tx pgx.Tx) (int, error) {
		query := `
			INSERT INTO runs (
				id, network, status, planned_timesteps, timesteps,
				total_cost, started_at, finished_at, summary, warnings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			results.RunID,
			results.Network,
			string(results.Status),
			results.PlannedTimesteps,
			results.Timesteps,
			totalCost,
			results.StartedAt,
			results.FinishedAt,
			summary,
			warnings,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save run: %w", err)
		}

		for _, rec := range results.Records {
			if err := insertRecord(ctx, tx, results.RunID, rec); err != nil {
				return 0, fmt.Errorf("failed to save record %d: %w", rec.Timestep, err)
			}
		}

		return len(results.Records), nil
	})
}

// GetRun возвращает прогон по идентификатору
func (r *PostgresRunRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.GetRun")
	defer span.End()

	query := `
		SELECT
			id, network, status, planned_timesteps, timesteps, total_cost,
			started_at, finished_at, summary, warnings, created_at, updated_at
		FROM runs
		WHERE id = $1
	`

	run := &Run{}
	var (
		finishedAt pgtype.Timestamptz
		summary    []byte
		warnings   []byte
	)

	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Network,
		&run.Status,
		&run.PlannedTimesteps,
		&run.Timesteps,
		&run.TotalCost,
		&run.StartedAt,
		&finishedAt,
		&summary,
		&warnings,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode run summary: %w", err)
		}
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode run warnings: %w", err)
		}
	}

	return run, nil
}

// Records возвращает записи прогона в порядке тиместепов.
// Предупреждения хранятся строками и в записи не восстанавливаются.
func (r *PostgresRunRepository) Records(ctx context.Context, runID string) ([]*engine.Record, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Records")
	defer span.End()

	query := `
		SELECT
			timestep, date, precipitation, temp_max, temp_min, et0,
			horizon, cost, cached, solve_time_ms,
			flows, levels, inflows, requests,
			delivered, deficits, spills, evaporation
		FROM run_records
		WHERE run_id = $1
		ORDER BY timestep
	`

	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*engine.Record
	for rows.Next() {
		rec := &engine.Record{}
		var (
			solveMs float64
			volumes [8][]byte
		)

		err := rows.Scan(
			&rec.Timestep,
			&rec.Date,
			&rec.Precipitation,
			&rec.TempMax,
			&rec.TempMin,
			&rec.ET0,
			&rec.Horizon,
			&rec.Cost,
			&rec.Cached,
			&solveMs,
			&volumes[0],
			&volumes[1],
			&volumes[2],
			&volumes[3],
			&volumes[4],
			&volumes[5],
			&volumes[6],
			&volumes[7],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.SolveTime = time.Duration(solveMs * float64(time.Millisecond))
		dests := []*map[string]float64{
			&rec.Flows, &rec.Levels, &rec.Inflows, &rec.Requests,
			&rec.Delivered, &rec.Deficits, &rec.Spills, &rec.Evaporation,
		}
		for i, dest := range dests {
			m, err := scanVolumes(volumes[i])
			if err != nil {
				return nil, fmt.Errorf("failed to decode record volumes: %w", err)
			}
			*dest = m
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// List возвращает страницу прогонов, новые первыми
func (r *PostgresRunRepository) List(ctx context.Context, opts *ListOptions) ([]*RunOverview, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	if opts == nil {
		opts = &ListOptions{Limit: 20, Offset: 0}
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	where, args := buildWhereClause(opts.Filter)

	countQuery := "SELECT COUNT(*) FROM runs" + where
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, network, status, timesteps, total_cost, started_at, finished_at
		FROM runs%s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	args = append(args, opts.Limit, opts.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []*RunOverview
	for rows.Next() {
		overview := &RunOverview{}
		var finishedAt pgtype.Timestamptz

		err := rows.Scan(
			&overview.ID,
			&overview.Network,
			&overview.Status,
			&overview.Timesteps,
			&overview.TotalCost,
			&overview.StartedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}

		if finishedAt.Valid {
			t := finishedAt.Time
			overview.FinishedAt = &t
		}
		results = append(results, overview)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, total, nil
}

// Delete удаляет прогон вместе с записями (каскад по внешнему ключу)
func (r *PostgresRunRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Delete")
	defer span.End()

	query := `DELETE FROM runs WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

func buildWhereClause(filter *ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	argNum := 1

	if filter != nil {
		if filter.Network != "" {
			conds = append(conds, fmt.Sprintf("network = $%d", argNum))
			args = append(args, filter.Network)
			argNum++
		}
		if filter.Status != "" {
			conds = append(conds, fmt.Sprintf("status = $%d", argNum))
			args = append(args, filter.Status)
			argNum++
		}
		if filter.StartTime != nil {
			conds = append(conds, fmt.Sprintf("started_at >= $%d", argNum))
			args = append(args, *filter.StartTime)
			argNum++
		}
		if filter.EndTime != nil {
			conds = append(conds, fmt.Sprintf("started_at < $%d", argNum))
			args = append(args, *filter.EndTime)
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func insertRecord(ctx context.Context, ex execer, runID string, rec *engine.Record) error {
	volumes := [...]map[string]float64{
		rec.Flows, rec.Levels, rec.Inflows, rec.Requests,
		rec.Delivered, rec.Deficits, rec.Spills, rec.Evaporation,
	}
	encoded := make([][]byte, len(volumes))
	for i, m := range volumes {
		data, err := volumesJSON(m)
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	warnings, err := warningsJSON(rec.Warnings)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO run_records (
			run_id, timestep, date,
			precipitation, temp_max, temp_min, et0,
			horizon, cost, cached, solve_time_ms,
			flows, levels, inflows, requests,
			delivered, deficits, spills, evaporation, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = ex.Exec(ctx, query,
		runID,
		rec.Timestep,
		rec.Date,
		rec.Precipitation,
		rec.TempMax,
		rec.TempMin,
		rec.ET0,
		rec.Horizon,
		rec.Cost,
		rec.Cached,
		float64(rec.SolveTime)/float64(time.Millisecond),
		encoded[0],
		encoded[1],
		encoded[2],
		encoded[3],
		encoded[4],
		encoded[5],
		encoded[6],
		encoded[7],
		warnings,
	)
	return err
}

// volumesJSON кодирует карту объёмов в JSONB; пустая карта хранится как NULL
func volumesJSON(m map[string]float64) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode volumes: %w", err)
	}
	return data, nil
}

func scanVolumes(data []byte) (map[string]float64, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// summaryJSON кодирует сводку прогона; nil хранится как NULL
func summaryJSON(s *engine.Summary) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return data, nil
}

// warningsJSON складывает предупреждения строками (код + сообщение + поле)
func warningsJSON(warns []*apperror.Error) ([]byte, error) {
	if len(warns) == 0 {
		return nil, nil
	}
	msgs := make([]string, len(warns))
	for i, w := range warns {
		msgs[i] = w.Error()
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode warnings: %w", err)
	}
	return data, nil
}
