package domain

import "math"

// HydraulicKind тип гидравлической модели звена
type HydraulicKind int

const (
	HydraulicNone HydraulicKind = iota
	HydraulicWeir
	HydraulicPipe
)

// String возвращает строковое представление типа модели
func (k HydraulicKind) String() string {
	switch k {
	case HydraulicWeir:
		return "weir"
	case HydraulicPipe:
		return "pipe"
	default:
		return "none"
	}
}

// Hydraulic зависимость пропускной способности звена от отметки верхнего бьефа.
// Водослив: Q = C·L·(H − отметка гребня)^1.5. Труба: постоянная пропускная
// способность при отметке выше входного порога.
type Hydraulic struct {
	Kind        HydraulicKind
	Coefficient float64 // коэффициент расхода водослива
	CrestLength float64 // длина гребня, м
	CrestLevel  float64 // отметка гребня или входного порога трубы, м
	Capacity    float64 // пропускная способность трубы, м³/сут
}

// CapacityAt возвращает пропускную способность при отметке head, м³/сут
func (h *Hydraulic) CapacityAt(head float64) float64 {
	switch h.Kind {
	case HydraulicWeir:
		drop := head - h.CrestLevel
		if drop <= 0 {
			return 0
		}
		return h.Coefficient * h.CrestLength * math.Pow(drop, 1.5)
	case HydraulicPipe:
		if head <= h.CrestLevel {
			return 0
		}
		return h.Capacity
	default:
		return Infinity
	}
}
