package domain

// Bounds результат воронки ограничений звена на текущие сутки
type Bounds struct {
	Min  float64
	Max  float64
	Cost float64
}

// Link направленное звено сети. Узлами звено не владеет,
// держит только идентификаторы концов.
type Link struct {
	ID               string
	From             string
	To               string
	PhysicalCapacity float64    // статический потолок расхода, м³/сут
	MinFlow          float64    // нижняя граница расхода, обычно 0
	Cost             float64    // слагаемое целевой функции
	Hydraulic        *Hydraulic // опциональная гидравлическая модель
	Control          *Control   // опциональное управляющее правило
	Flow             float64    // расход по итогам последнего решения
	Virtual          bool       // служебное звено решателя
}

// NewLink создаёт звено с физическим потолком и стоимостью
func NewLink(id, from, to string, capacity, cost float64) *Link {
	return &Link{
		ID:               id,
		From:             from,
		To:               to,
		PhysicalCapacity: capacity,
		Cost:             cost,
	}
}

// Constraints вычисляет воронку ограничений звена: физика → гидравлика →
// управление. Порядок фиксирован, каждый следующий слой может только
// ужесточать верхнюю границу. head — отметка уровня узла-истока.
func (l *Link) Constraints(head float64) Bounds {
	qmax := l.PhysicalCapacity

	if l.Hydraulic != nil && l.Hydraulic.Kind != HydraulicNone {
		qmax = min(qmax, l.Hydraulic.CapacityAt(head))
	}

	if l.Control != nil && l.Control.Kind != ControlNone {
		qmax = min(qmax, l.Control.Apply(qmax))
	}

	return Bounds{Min: l.MinFlow, Max: qmax, Cost: l.Cost}
}

// IsVirtual сообщает, является ли звено служебным для решателя
func (l *Link) IsVirtual() bool {
	return l.Virtual || IsVirtualID(l.ID)
}
