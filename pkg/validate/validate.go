// Package validate выполняет углублённые проверки сети поверх
// Network.Validate: достижимость потребителей, связность, отрицательные
// циклы, порядок стоимостей и сводная статистика ёмкостей.
package validate

import (
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Report итог полного цикла проверок
type Report struct {
	Result *apperror.ValidationErrors
	Stats  *NetworkStats
}

// Valid сообщает, пригодна ли сеть для прогона
func (r *Report) Valid() bool {
	return r.Result.IsValid()
}

// All прогоняет все проверки: сначала структура, при её ошибках глубокие
// проверки не выполняются — им нужна целая топология
func All(nw *domain.Network) *Report {
	if nw == nil {
		result := apperror.NewValidationErrors()
		result.AddError(apperror.CodeNilInput, "network is nil")
		return &Report{Result: result}
	}

	result := nw.Validate()
	if result.HasErrors() {
		return &Report{Result: result}
	}

	result.Merge(Reachability(nw))
	result.Merge(Components(nw))
	result.Merge(NegativeCycles(nw))
	result.Merge(CostHierarchy(nw))

	return &Report{Result: result, Stats: Statistics(nw)}
}
