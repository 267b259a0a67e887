package domain

import (
	"math"
	"strings"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// Математические константы
const (
	Epsilon          = 1e-9
	Infinity         = math.MaxFloat64
	NegativeInfinity = -math.MaxFloat64
)

// Стоимости дуг целевой функции. Строгий порядок CostDemand < CostStorage < CostSpill
// означает: поставка потребителю выгоднее накопления, накопление выгоднее сброса.
const (
	CostDemand  = -1000.0
	CostStorage = -1.0
	CostSpill   = 0.0
)

// Суффиксы идентификаторов виртуальных элементов, создаваемых решателем
const (
	VirtualSinkSuffix = "_future"
	CarryoverSuffix   = "_carryover"
	SpillSuffix       = "_spill"
)

// IsVirtualID проверяет, помечен ли идентификатор как виртуальный
func IsVirtualID(id string) bool {
	return strings.HasSuffix(id, VirtualSinkSuffix) ||
		strings.HasSuffix(id, CarryoverSuffix) ||
		strings.HasSuffix(id, SpillSuffix)
}

// ValidateCostOrder проверяет строгий порядок стоимостей demand < storage < spill
func ValidateCostOrder(demand, storage, spill float64) error {
	if demand < storage && storage < spill {
		return nil
	}
	return apperror.Newf(apperror.CodeCostHierarchy,
		"cost order violated: demand=%g storage=%g spill=%g (must be demand < storage < spill)",
		demand, storage, spill)
}

// FloatEquals сравнивает два float64 с учётом Epsilon
func FloatEquals(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// FloatLess проверяет a < b с учётом Epsilon
func FloatLess(a, b float64) bool {
	return a < b-Epsilon
}

// FloatGreater проверяет a > b с учётом Epsilon
func FloatGreater(a, b float64) bool {
	return a > b+Epsilon
}

// IsZero проверяет, равно ли значение нулю
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// IsPositive проверяет, положительно ли значение
func IsPositive(v float64) bool {
	return v > Epsilon
}
