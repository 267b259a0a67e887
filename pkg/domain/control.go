package domain

// ControlKind тип управляющего правила звена
type ControlKind int

const (
	ControlNone ControlKind = iota
	ControlFraction
	ControlAbsolute
	ControlSwitch
)

// String возвращает строковое представление типа правила
func (k ControlKind) String() string {
	switch k {
	case ControlFraction:
		return "fraction"
	case ControlAbsolute:
		return "absolute"
	case ControlSwitch:
		return "switch"
	default:
		return "none"
	}
}

// Control управляющее правило звена. Правило может только ужесточать
// верхнюю границу расхода, никогда не ослаблять её.
type Control struct {
	Kind     ControlKind
	Fraction float64 // множитель [0, 1] для ControlFraction
	Limit    float64 // абсолютный потолок для ControlAbsolute, м³/сут
	Open     bool    // положение затвора для ControlSwitch
}

// Apply возвращает верхнюю границу расхода после применения правила
func (c *Control) Apply(qmax float64) float64 {
	switch c.Kind {
	case ControlFraction:
		f := c.Fraction
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return qmax * f
	case ControlAbsolute:
		return min(qmax, c.Limit)
	case ControlSwitch:
		if !c.Open {
			return 0
		}
		return qmax
	default:
		return qmax
	}
}
