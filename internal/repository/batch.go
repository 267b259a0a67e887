package repository

import (
	"context"
	"time"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// BatchRecorder откладывает запись прогона до его завершения: потиместепный
// поток игнорируется, RunFinished сохраняет весь прогон одной транзакцией
// через SaveResults. Для ансамблей, где построчная запись каждой реплики
// слишком дорога
type BatchRecorder struct {
	repo RunRepository
}

var _ engine.Recorder = (*BatchRecorder)(nil)

// NewBatchRecorder оборачивает хранилище в отложенный рекордер
func NewBatchRecorder(repo RunRepository) *BatchRecorder {
	return &BatchRecorder{repo: repo}
}

// RunStarted ничего не делает: строка прогона появится в RunFinished
func (r *BatchRecorder) RunStarted(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

// RecordTimestep ничего не делает: записи приходят в составе результатов
func (r *BatchRecorder) RecordTimestep(_ context.Context, _ string, _ *engine.Record) error {
	return nil
}

// RunFinished сохраняет прогон целиком
func (r *BatchRecorder) RunFinished(ctx context.Context, _ string, results *engine.Results) error {
	_, err := r.repo.SaveResults(ctx, results)
	return err
}
