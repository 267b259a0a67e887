package domain

import (
	"math"
	"testing"
)

func TestLink_Constraints_PhysicalOnly(t *testing.T) {
	l := NewLink("canal", "a", "b", 5000, -1000)

	b := l.Constraints(0)
	if b.Min != 0 {
		t.Errorf("Min = %v, want 0", b.Min)
	}
	if b.Max != 5000 {
		t.Errorf("Max = %v, want 5000", b.Max)
	}
	if b.Cost != -1000 {
		t.Errorf("Cost = %v, want -1000", b.Cost)
	}
}

func TestLink_Constraints_Hydraulic(t *testing.T) {
	l := NewLink("spillway", "res", "river", 100000, 0)
	l.Hydraulic = &Hydraulic{
		Kind:        HydraulicWeir,
		Coefficient: 1.7,
		CrestLength: 10,
		CrestLevel:  105,
	}

	// Head below crest: no flow
	b := l.Constraints(104)
	if b.Max != 0 {
		t.Errorf("Max below crest = %v, want 0", b.Max)
	}

	// Head 2 m above crest: Q = 1.7 * 10 * 2^1.5
	b = l.Constraints(107)
	want := 1.7 * 10 * math.Pow(2, 1.5)
	if math.Abs(b.Max-want) > Epsilon {
		t.Errorf("Max = %v, want %v", b.Max, want)
	}

	// Physical capacity still caps the hydraulic result
	l.PhysicalCapacity = 10
	b = l.Constraints(107)
	if b.Max != 10 {
		t.Errorf("Max = %v, want physical cap 10", b.Max)
	}
}

func TestLink_Constraints_Pipe(t *testing.T) {
	l := NewLink("outlet", "res", "city", 1e9, -1000)
	l.Hydraulic = &Hydraulic{Kind: HydraulicPipe, CrestLevel: 101, Capacity: 4000}

	if b := l.Constraints(100); b.Max != 0 {
		t.Errorf("Max below invert = %v, want 0", b.Max)
	}
	if b := l.Constraints(110); b.Max != 4000 {
		t.Errorf("Max = %v, want 4000", b.Max)
	}
}

func TestLink_Constraints_Control(t *testing.T) {
	tests := []struct {
		name    string
		control *Control
		want    float64
	}{
		{"fraction halves", &Control{Kind: ControlFraction, Fraction: 0.5}, 500},
		{"fraction clamped above one", &Control{Kind: ControlFraction, Fraction: 1.5}, 1000},
		{"absolute caps", &Control{Kind: ControlAbsolute, Limit: 300}, 300},
		{"absolute above capacity is no-op", &Control{Kind: ControlAbsolute, Limit: 5000}, 1000},
		{"switch closed", &Control{Kind: ControlSwitch, Open: false}, 0},
		{"switch open", &Control{Kind: ControlSwitch, Open: true}, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLink("gate", "a", "b", 1000, 0)
			l.Control = tt.control
			if b := l.Constraints(0); b.Max != tt.want {
				t.Errorf("Max = %v, want %v", b.Max, tt.want)
			}
		})
	}
}

func TestLink_Constraints_LayersOnlyTighten(t *testing.T) {
	// Hydraulic allows more than physical, control allows more than both:
	// the funnel must keep the tightest bound
	l := NewLink("reach", "res", "b", 200, 0)
	l.Hydraulic = &Hydraulic{Kind: HydraulicPipe, CrestLevel: 0, Capacity: 900}
	l.Control = &Control{Kind: ControlAbsolute, Limit: 800}

	if b := l.Constraints(50); b.Max != 200 {
		t.Errorf("Max = %v, want 200", b.Max)
	}

	// Now the control is the tightest layer
	l.Control.Limit = 150
	if b := l.Constraints(50); b.Max != 150 {
		t.Errorf("Max = %v, want 150", b.Max)
	}
}

func TestLink_IsVirtual(t *testing.T) {
	if NewLink("canal", "a", "b", 1, 0).IsVirtual() {
		t.Error("plain link should not be virtual")
	}
	if !NewLink("res_carryover", "res", "res_future", 1, CostStorage).IsVirtual() {
		t.Error("carryover link should be virtual by id")
	}
	l := NewLink("x", "a", "b", 1, 0)
	l.Virtual = true
	if !l.IsVirtual() {
		t.Error("flagged link should be virtual")
	}
}

func TestHydraulic_NoneIsUnbounded(t *testing.T) {
	h := &Hydraulic{Kind: HydraulicNone}
	if h.CapacityAt(10) != Infinity {
		t.Error("none model should not constrain")
	}
}

func TestControl_Apply_NegativeFraction(t *testing.T) {
	c := &Control{Kind: ControlFraction, Fraction: -0.5}
	if got := c.Apply(100); got != 0 {
		t.Errorf("Apply = %v, want 0", got)
	}
}
