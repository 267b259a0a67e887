package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Прогон
	AttrRunID            = "run.id"
	AttrRunNetwork       = "run.network"
	AttrRunTimesteps     = "run.timesteps"
	AttrRunLookaheadDays = "run.lookahead_days"
	AttrRunTimestep      = "run.timestep"
	AttrRunStatus        = "run.status"

	// Ансамбль
	AttrEnsembleReplicates = "ensemble.replicates"
	AttrEnsembleBaseSeed   = "ensemble.base_seed"

	// Сеть
	AttrNetworkName  = "network.name"
	AttrNetworkNodes = "network.nodes"
	AttrNetworkLinks = "network.links"

	// Валидация
	AttrValidationErrors   = "validation.errors"
	AttrValidationWarnings = "validation.warnings"
	AttrValidationPassed   = "validation.passed"

	// Выгрузка
	AttrExportFormat = "export.format"
	AttrExportPath   = "export.path"
)

// RunAttributes возвращает атрибуты прогона
func RunAttributes(runID, network string, timesteps, lookaheadDays int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrRunNetwork, network),
		attribute.Int(AttrRunTimesteps, timesteps),
		attribute.Int(AttrRunLookaheadDays, lookaheadDays),
	}
}

// StepAttributes возвращает атрибуты шага прогона
func StepAttributes(runID string, timestep int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrRunTimestep, timestep),
	}
}

// EnsembleAttributes возвращает атрибуты ансамбля Монте-Карло
func EnsembleAttributes(replicates int, baseSeed int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrEnsembleReplicates, replicates),
		attribute.Int64(AttrEnsembleBaseSeed, baseSeed),
	}
}

// NetworkAttributes возвращает атрибуты водохозяйственной сети
func NetworkAttributes(name string, nodes, links int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrNetworkName, name),
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkLinks, links),
	}
}

// ValidationAttributes возвращает атрибуты валидации сценария
func ValidationAttributes(errorsCount, warningsCount int, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrValidationErrors, errorsCount),
		attribute.Int(AttrValidationWarnings, warningsCount),
		attribute.Bool(AttrValidationPassed, passed),
	}
}

// ExportAttributes возвращает атрибуты выгрузки отчёта
func ExportAttributes(format, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrExportFormat, format),
		attribute.String(AttrExportPath, path),
	}
}
