package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/solver"
)

// AllocationCache специализированный кэш для результатов решателя.
// Цена переноса входит в ключ: один и тот же граф при другой цене
// даёт другое распределение
type AllocationCache struct {
	cache         Cache
	carryoverCost float64
	defaultTTL    time.Duration
}

// CachedAllocation кэшированный результат распределения
type CachedAllocation struct {
	Flows       map[string]float64 `json:"flows"`
	Levels      map[string]float64 `json:"levels"`
	Delivered   map[string]float64 `json:"delivered"`
	Spills      map[string]float64 `json:"spills"`
	Evaporation map[string]float64 `json:"evaporation,omitempty"`
	Warnings    []CachedWarning    `json:"warnings,omitempty"`
	Horizon     int                `json:"horizon"`
	Nodes       int                `json:"nodes"`
	Arcs        int                `json:"arcs"`
	Cost        float64            `json:"cost"`
	Iterations  int                `json:"iterations"`
	SolveTimeMs float64            `json:"solve_time_ms"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// CachedWarning предупреждение сборки, сохранённое вместе с результатом
type CachedWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// NewAllocationCache создаёт кэш результатов для фиксированной цены переноса
func NewAllocationCache(cache Cache, carryoverCost float64, defaultTTL time.Duration) *AllocationCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &AllocationCache{
		cache:         cache,
		carryoverCost: carryoverCost,
		defaultTTL:    defaultTTL,
	}
}

// Lookup получает кэшированный результат для задачи
func (ac *AllocationCache) Lookup(ctx context.Context, p *solver.Problem) (*solver.Result, bool, error) {
	key := ac.key(p)

	data, err := ac.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached CachedAllocation
	if err := json.Unmarshal(data, &cached); err != nil {
		// Повреждённый кэш — удаляем, ошибку удаления игнорируем намеренно
		_ = ac.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return cached.ToResult(), true, nil
}

// Store сохраняет результат решателя в кэш
func (ac *AllocationCache) Store(ctx context.Context, p *solver.Problem, res *solver.Result) error {
	if res == nil {
		return nil
	}

	cached := fromResult(res)
	cached.ComputedAt = time.Now()

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}

	return ac.cache.Set(ctx, ac.key(p), data, ac.defaultTTL)
}

// Invalidate удаляет кэшированные результаты задачи при любой цене переноса
func (ac *AllocationCache) Invalidate(ctx context.Context, p *solver.Problem) error {
	pattern := fmt.Sprintf("alloc:*:%s", ProblemHash(p))
	_, err := ac.cache.DeleteByPattern(ctx, pattern)
	return err
}

// InvalidateAll удаляет весь кэш результатов распределения
func (ac *AllocationCache) InvalidateAll(ctx context.Context) (int64, error) {
	return ac.cache.DeleteByPattern(ctx, "alloc:*")
}

func (ac *AllocationCache) key(p *solver.Problem) string {
	return BuildAllocationKey(ProblemHash(p), ac.carryoverCost)
}

// ToResult восстанавливает результат решателя из кэшированного представления.
// Предупреждения сборки воспроизводятся, чтобы попадание в кэш не меняло
// наблюдаемое поведение шага
func (c *CachedAllocation) ToResult() *solver.Result {
	res := &solver.Result{
		Flows:       c.Flows,
		Levels:      c.Levels,
		Delivered:   c.Delivered,
		Spills:      c.Spills,
		Evaporation: c.Evaporation,
		Horizon:     c.Horizon,
		Nodes:       c.Nodes,
		Arcs:        c.Arcs,
		Cost:        c.Cost,
		Iterations:  c.Iterations,
		Duration:    time.Duration(c.SolveTimeMs * float64(time.Millisecond)),
	}

	for _, w := range c.Warnings {
		warn := apperror.NewWarning(apperror.ErrorCode(w.Code), w.Message)
		if w.Field != "" {
			warn = warn.WithField(w.Field)
		}
		res.Warnings = append(res.Warnings, warn)
	}

	return res
}

// fromResult строит кэшируемое представление результата
func fromResult(res *solver.Result) *CachedAllocation {
	cached := &CachedAllocation{
		Flows:       res.Flows,
		Levels:      res.Levels,
		Delivered:   res.Delivered,
		Spills:      res.Spills,
		Evaporation: res.Evaporation,
		Horizon:     res.Horizon,
		Nodes:       res.Nodes,
		Arcs:        res.Arcs,
		Cost:        res.Cost,
		Iterations:  res.Iterations,
		SolveTimeMs: float64(res.Duration) / float64(time.Millisecond),
	}

	for _, w := range res.Warnings {
		cached.Warnings = append(cached.Warnings, CachedWarning{
			Code:    string(w.Code),
			Message: w.Message,
			Field:   w.Field,
		})
	}

	return cached
}
