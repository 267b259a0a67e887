// Package repository хранит историю прогонов: строку прогона, потиместепные
// записи движка и итоговую сводку.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// Стандартные ошибки
var ErrRunNotFound = errors.New("run not found")

// StatusRunning статус прогона между RunStarted и RunFinished.
// Терминальные статусы приходят из движка.
const StatusRunning = "running"

// Run полная запись прогона
type Run struct {
	ID               string
	Network          string
	Status           string
	PlannedTimesteps int
	Timesteps        int
	TotalCost        float64
	StartedAt        time.Time
	FinishedAt       *time.Time
	Summary          *engine.Summary
	Warnings         []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RunOverview краткая информация о прогоне для списков
type RunOverview struct {
	ID         string
	Network    string
	Status     string
	Timesteps  int
	TotalCost  float64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// ListFilter фильтры для списка прогонов
type ListFilter struct {
	Network   string
	Status    string
	StartTime *time.Time
	EndTime   *time.Time
}

// ListOptions опции выборки
type ListOptions struct {
	Limit  int
	Offset int
	Filter *ListFilter
}

// RunRepository интерфейс хранилища прогонов. Часть engine.Recorder
// позволяет отдавать реализацию движку напрямую: он стримит запись
// прогона по мере счёта.
type RunRepository interface {
	engine.Recorder

	// SaveResults сохраняет завершённый прогон одной транзакцией
	// (строка прогона + все записи) и возвращает число записей.
	SaveResults(ctx context.Context, results *engine.Results) (int, error)

	GetRun(ctx context.Context, id string) (*Run, error)
	Records(ctx context.Context, runID string) ([]*engine.Record, error)
	List(ctx context.Context, opts *ListOptions) ([]*RunOverview, int64, error)
	Delete(ctx context.Context, id string) error
}
