package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jlillywh/hydrosim/internal/export"
	"github.com/jlillywh/hydrosim/internal/repository"
	"github.com/jlillywh/hydrosim/pkg/audit"
	"github.com/jlillywh/hydrosim/pkg/cache"
	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/database"
	"github.com/jlillywh/hydrosim/pkg/domain"
	"github.com/jlillywh/hydrosim/pkg/engine"
	"github.com/jlillywh/hydrosim/pkg/logger"
	"github.com/jlillywh/hydrosim/pkg/metrics"
	"github.com/jlillywh/hydrosim/pkg/solver"
	"github.com/jlillywh/hydrosim/pkg/telemetry"
)

// appRuntime общее окружение команд: конфигурация, хранилище прогонов,
// журнал аудита и телеметрия
type appRuntime struct {
	cfg     *config.Config
	db      *database.PostgresDB
	repo    repository.RunRepository
	auditor audit.Logger
	journal *audit.Journal
	tracer  *telemetry.Provider
}

// newRuntime собирает окружение по конфигурации приложения. При needDB
// недоступная база считается ошибкой, иначе команда продолжает без истории
func newRuntime(ctx context.Context, needDB bool) (*appRuntime, error) {
	cfg, err := config.NewLoader(configOpts()...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	rt := &appRuntime{cfg: cfg}

	// Телеметрия
	if cfg.Tracing.Enabled {
		tp, terr := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if terr != nil {
			logger.Log.Warn("Failed to init telemetry", "error", terr)
		} else {
			rt.tracer = tp
		}
	}

	// Метрики
	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	if cfg.Metrics.Enabled {
		prometheus.MustRegister(metrics.NewRuntimeCollector(cfg.Metrics.Namespace, cfg.Metrics.Subsystem))
		go func() {
			if serr := metrics.StartMetricsServer(cfg.Metrics.Port); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				logger.Log.Error("Metrics server failed", "error", serr)
			}
		}()
	}

	// История прогонов
	if cfg.Database.Driver == "postgres" {
		db, derr := database.NewPostgresDB(ctx, &cfg.Database)
		switch {
		case derr != nil && needDB:
			rt.close()
			return nil, fmt.Errorf("failed to connect to database: %w", derr)
		case derr != nil:
			logger.Log.Warn("Database unavailable, continuing without run history", "error", derr)
		default:
			if cfg.Database.AutoMigrate {
				if merr := repository.Migrate(ctx, db.Pool(), &cfg.Database); merr != nil {
					db.Close()
					rt.close()
					return nil, fmt.Errorf("failed to run migrations: %w", merr)
				}
			}
			rt.db = db
			rt.repo = repository.NewPostgresRunRepository(db)
			logger.Info("Run history storage initialized", "driver", cfg.Database.Driver)
		}
	} else if needDB {
		rt.close()
		return nil, fmt.Errorf("run history needs database.driver=postgres, got %q", cfg.Database.Driver)
	}

	// Аудит: бэкенд postgres делит пул с историей прогонов
	acfg := auditConfig(&cfg.Audit)
	if acfg.Enabled && acfg.Backend == "postgres" {
		if rt.db != nil {
			rt.auditor = audit.NewDBLogger(rt.db, acfg)
		} else {
			logger.Log.Warn("Audit backend postgres needs a database, falling back to stdout")
			acfg.Backend = "stdout"
		}
	}
	if rt.auditor == nil {
		al, aerr := audit.New(acfg)
		if aerr != nil {
			rt.close()
			return nil, fmt.Errorf("failed to init audit log: %w", aerr)
		}
		rt.auditor = al
	}
	rt.journal = audit.NewJournal(rt.auditor)

	return rt, nil
}

// close освобождает ресурсы: аудит до базы, он может писать в её пул
func (rt *appRuntime) close() {
	if rt.auditor != nil {
		if err := rt.auditor.Close(); err != nil {
			logger.Log.Warn("Failed to close audit log", "error", err)
		}
	}
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.tracer.Shutdown(ctx); err != nil {
			logger.Log.Warn("Failed to shutdown telemetry", "error", err)
		}
	}
}

// configOpts превращает флаг --config в опции загрузчика
func configOpts() []config.LoaderOption {
	if configPath == "" {
		return nil
	}
	return []config.LoaderOption{config.WithConfigPaths(configPath)}
}

// loadSimulation читает и компилирует сценарий
func loadSimulation(path string) (*config.Simulation, error) {
	sc, err := config.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return compileScenario(sc)
}

// compileScenario компилирует сценарий, предупреждения уходят в лог
func compileScenario(sc *config.Scenario) (*config.Simulation, error) {
	sim, ve := sc.Compile()
	if sim == nil {
		return nil, ve.AsError()
	}
	if ve != nil && ve.HasWarnings() {
		for _, w := range ve.Warnings {
			logger.Log.Warn("Scenario warning", "warning", w.Error())
		}
	}
	return sim, nil
}

// engineSettings переносит настройки сценария в настройки движка
func engineSettings(s config.SettingsSpec) engine.Settings {
	return engine.Settings{
		Timesteps:        s.Timesteps,
		LookaheadDays:    s.LookaheadDays,
		PerfectForesight: s.PerfectForesight,
		RollingHorizon:   s.RollingHorizon,
	}
}

// effectiveCarryover возвращает стоимость переноса воды между днями,
// с ней же строится ключ кэша аллокаций
func effectiveCarryover(opts *solver.Options) float64 {
	if opts != nil && opts.CarryoverCost != 0 {
		return opts.CarryoverCost
	}
	return domain.CostStorage
}

// allocationCache строит кэш аллокаций, nil когда кэш выключен или недоступен
func (rt *appRuntime) allocationCache(opts *solver.Options) *cache.AllocationCache {
	if !rt.cfg.Cache.Enabled {
		return nil
	}
	c, err := cache.New(cache.FromConfig(&rt.cfg.Cache))
	if err != nil {
		logger.Log.Warn("Failed to init allocation cache, running without it", "error", err)
		return nil
	}
	return cache.NewAllocationCache(c, effectiveCarryover(opts), rt.cfg.Cache.DefaultTTL)
}

// buildEngine собирает движок прогона из скомпилированного сценария
func buildEngine(rt *appRuntime, sim *config.Simulation, rec engine.Recorder, alloc *cache.AllocationCache) (*engine.Engine, error) {
	return engine.New(&engine.Config{
		Network:  sim.Network,
		Climate:  sim.Climate,
		Settings: engineSettings(sim.Settings),
		Solver:   sim.Solver,
		Recorder: rec,
		Cache:    alloc,
		Journal:  rt.journal,
		Log:      logger.Log,
	})
}

// exportResults выгружает результаты прогона. Формат и каталог из флагов
// перекрывают конфигурацию, пустой формат выключает выгрузку
func exportResults(ctx context.Context, rt *appRuntime, results *engine.Results, format, dir string) (string, error) {
	ecfg := rt.cfg.Export
	if format != "" {
		ecfg.Format = format
	}
	if dir != "" {
		ecfg.Directory = dir
	}
	if ecfg.Format == "" {
		return "", nil
	}
	if ecfg.Directory == "" {
		ecfg.Directory = "."
	}

	ctx, span := telemetry.StartSpan(ctx, "cli.Export")
	defer span.End()

	exp, err := export.New(&ecfg)
	if err != nil {
		telemetry.SetError(ctx, err)
		rt.journal.Exported(ctx, results.RunID, ecfg.Format, "", err)
		return "", err
	}

	path, err := export.Write(ctx, exp, ecfg.Directory, results)
	rt.journal.Exported(ctx, results.RunID, exp.Format(), path, err)
	if err != nil {
		telemetry.SetError(ctx, err)
		return "", err
	}
	span.SetAttributes(telemetry.ExportAttributes(exp.Format(), path)...)
	return path, nil
}

// auditConfig переносит настройки аудита приложения в конфигурацию журнала
func auditConfig(c *config.AuditConfig) *audit.Config {
	return &audit.Config{
		Enabled:     c.Enabled,
		Backend:     c.Backend,
		FilePath:    c.FilePath,
		MaxSize:     c.MaxSize,
		MaxAge:      c.MaxAge,
		Compress:    c.Compress,
		BufferSize:  c.BufferSize,
		BatchSize:   c.BatchSize,
		FlushPeriod: c.FlushPeriod,
	}
}

// resultsFromRun восстанавливает результаты из сохранённого прогона.
// Предупреждения хранятся свёрнутыми в строки и не восстанавливаются
func resultsFromRun(run *repository.Run, records []*engine.Record) *engine.Results {
	results := &engine.Results{
		RunID:            run.ID,
		Network:          run.Network,
		Status:           engine.Status(run.Status),
		StartedAt:        run.StartedAt,
		PlannedTimesteps: run.PlannedTimesteps,
		Timesteps:        run.Timesteps,
		Records:          records,
		Summary:          run.Summary,
	}
	if run.FinishedAt != nil {
		results.FinishedAt = *run.FinishedAt
	}
	return results
}
