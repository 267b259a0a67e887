package validate

import (
	"testing"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// mustNetwork собирает сеть, падая при ошибке регистрации
func mustNetwork(t *testing.T, nodes []*domain.Node, links []*domain.Link) *domain.Network {
	t.Helper()
	nw := domain.NewNetwork("test")
	for _, n := range nodes {
		if err := nw.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	for _, l := range links {
		if err := nw.AddLink(l); err != nil {
			t.Fatalf("AddLink(%s): %v", l.ID, err)
		}
	}
	return nw
}

func hasCode(errs []*apperror.Error, code apperror.ErrorCode) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func TestReachability(t *testing.T) {
	tests := []struct {
		name         string
		build        func(t *testing.T) *domain.Network
		wantErrors   int
		wantWarnings int
		wantCode     apperror.ErrorCode
	}{
		{
			name: "chain_reaches_every_demand",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewJunction("j"),
						domain.NewDemand("city", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "src", "j", 100, 0),
						domain.NewLink("b", "j", "city", 100, domain.CostDemand),
					},
				)
			},
		},
		{
			name: "orphan_demand",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewDemand("city", 1, nil),
						domain.NewDemand("island", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "src", "city", 100, domain.CostDemand),
					},
				)
			},
			wantErrors: 1,
			wantCode:   apperror.CodeUnreachableDemand,
		},
		{
			name: "dead_end_source",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewStorage("res", 500, 0, 1000, nil),
						domain.NewDemand("city", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "res", "city", 100, domain.CostDemand),
					},
				)
			},
			wantErrors: 1,
			wantCode:   apperror.CodeIsolatedNode,
		},
		{
			name: "dead_end_storage",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewStorage("res", 500, 0, 1000, nil),
						domain.NewDemand("city", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "src", "res", 100, 0),
						domain.NewLink("b", "src", "city", 100, domain.CostDemand),
					},
				)
			},
			wantWarnings: 1,
			wantCode:     apperror.CodeIsolatedNode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Reachability(tt.build(t))

			if len(result.Errors) != tt.wantErrors {
				t.Errorf("got %d errors, want %d: %v", len(result.Errors), tt.wantErrors, result.ErrorMessages())
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(result.Warnings), tt.wantWarnings, result.WarningMessages())
			}
			if tt.wantCode != "" {
				all := append(append([]*apperror.Error{}, result.Errors...), result.Warnings...)
				if !hasCode(all, tt.wantCode) {
					t.Errorf("missing code %s in %v", tt.wantCode, all)
				}
			}
		})
	}
}

func TestReachability_StorageFeedsDemand(t *testing.T) {
	// Водохранилище без внешнего притока само является корнем маршрута
	nw := mustNetwork(t,
		[]*domain.Node{
			domain.NewStorage("res", 500, 0, 1000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("a", "res", "city", 100, domain.CostDemand),
		},
	)

	result := Reachability(nw)
	if result.HasErrors() {
		t.Errorf("unexpected errors: %v", result.ErrorMessages())
	}
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name         string
		build        func(t *testing.T) *domain.Network
		wantWarnings int
	}{
		{
			name: "single_component",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewDemand("city", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "src", "city", 100, domain.CostDemand),
					},
				)
			},
		},
		{
			name: "two_islands",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src1", nil),
						domain.NewDemand("city1", 1, nil),
						domain.NewSource("src2", nil),
						domain.NewDemand("city2", 1, nil),
					},
					[]*domain.Link{
						domain.NewLink("a", "src1", "city1", 100, domain.CostDemand),
						domain.NewLink("b", "src2", "city2", 100, domain.CostDemand),
					},
				)
			},
			wantWarnings: 1,
		},
		{
			name: "lone_junction_is_a_component",
			build: func(t *testing.T) *domain.Network {
				return mustNetwork(t,
					[]*domain.Node{
						domain.NewSource("src", nil),
						domain.NewDemand("city", 1, nil),
						domain.NewJunction("j"),
					},
					[]*domain.Link{
						domain.NewLink("a", "src", "city", 100, domain.CostDemand),
					},
				)
			},
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Components(tt.build(t))
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(result.Warnings), tt.wantWarnings, result.WarningMessages())
			}
			if result.HasErrors() {
				t.Errorf("components must never error, got: %v", result.ErrorMessages())
			}
		})
	}
}
