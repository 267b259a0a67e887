package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// buildNetwork собирает сеть из узлов и звеньев, падая при ошибке регистрации
func buildNetwork(t *testing.T, nodes []*domain.Node, links []*domain.Link) *domain.Network {
	t.Helper()
	nw := domain.NewNetwork("test")
	for _, n := range nodes {
		require.NoError(t, nw.AddNode(n))
	}
	for _, l := range links {
		require.NoError(t, nw.AddLink(l))
	}
	return nw
}

// networkBounds вычисляет воронки всех звеньев при текущем состоянии сети
func networkBounds(t *testing.T, nw *domain.Network) map[string]domain.Bounds {
	t.Helper()
	bounds := make(map[string]domain.Bounds, nw.LinkCount())
	for _, l := range nw.Links() {
		b, err := nw.LinkBounds(l)
		require.NoError(t, err)
		bounds[l.ID] = b
	}
	return bounds
}

// riverSystem типовая сеть: источник, развилка, водохранилище и два
// потребителя с разными вознаграждениями; звено к cityA уже запроса
func riverSystem(t *testing.T) (*domain.Network, *Problem) {
	t.Helper()
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewJunction("j"),
			domain.NewStorage("res", 4000, 500, 6000, nil),
			domain.NewDemand("cityA", 2, nil),
			domain.NewDemand("cityB", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_j", "src", "j", domain.Infinity, 0),
			domain.NewLink("j_res", "j", "res", domain.Infinity, 0),
			domain.NewLink("j_cityA", "j", "cityA", 800, 2*domain.CostDemand),
			domain.NewLink("res_cityB", "res", "cityB", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 1200},
			Requests:   map[string]float64{"cityA": 900, "cityB": 700},
		}},
	}
	return nw, p
}

func TestSinglePeriod_DeliversFromStorage(t *testing.T) {
	// Водохранилище 50000 и запрос 2000: поставка полная, остаток в перенос
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewStorage("res", 50000, 0, 100000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_res", "src", "res", domain.Infinity, 0),
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 0},
			Requests:   map[string]float64{"city": 2000},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 2000, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 48000, res.Levels["res"], 1e-6)
	assert.InDelta(t, 0, res.Spills["res"], 1e-6)
	assert.InDelta(t, 2000, res.Flows["res_city"], 1e-6)
	assert.InDelta(t, 0, res.Flows["src_res"], 1e-6)
	// 2000×(−1000) за поставку и 48000×(−1) за перенос
	assert.InDelta(t, -2048000, res.Cost, 1e-6)
	assert.Equal(t, 1, res.Horizon)
	assert.Empty(t, res.Warnings)
}

func TestSinglePeriod_RefillsEmptyStorage(t *testing.T) {
	// Приток 5000 в пустое водохранилище при нулевом запросе оседает целиком
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewStorage("res", 0, 0, 10000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_res", "src", "res", domain.Infinity, 0),
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 5000},
			Requests:   map[string]float64{"city": 0},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 5000, res.Levels["res"], 1e-6)
	assert.InDelta(t, 5000, res.Flows["src_res"], 1e-6)
	assert.InDelta(t, 0, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 0, res.Spills["res"], 1e-6)
}

func TestSinglePeriod_HoldsDeadPool(t *testing.T) {
	// Уровень равен мёртвому объёму: запрос остаётся непокрытым без ошибки
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewStorage("res", 1000, 1000, 5000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Requests: map[string]float64{"city": 2000},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 0, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 1000, res.Levels["res"], 1e-6)
	assert.Empty(t, res.Warnings)
}

func TestSinglePeriod_DrawdownStopsAtDeadPool(t *testing.T) {
	// Выше мёртвого объёма отдаётся всё, что можно, но не больше
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewStorage("res", 3000, 1000, 5000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Requests: map[string]float64{"city": 5000},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 2000, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 1000, res.Levels["res"], 1e-6)
}

func TestSinglePeriod_RefillCapsAtFull(t *testing.T) {
	// Переполнение: уровень упирается в полный объём, излишек уходит сбросом
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewStorage("res", 8000, 0, 10000, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_res", "src", "res", domain.Infinity, 0),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 5000},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 10000, res.Levels["res"], 1e-6)
	assert.InDelta(t, 3000, res.Spills["res"], 1e-6)
}

func TestSinglePeriod_DemandBeforeCarryover(t *testing.T) {
	// Поставка выгоднее накопления: в переносе остаётся только мёртвый объём
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewStorage("res", 100, 20, 200, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Requests: map[string]float64{"city": 200},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 80, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 20, res.Levels["res"], 1e-6)
}

func TestSinglePeriod_EvaporationClamped(t *testing.T) {
	// Испарение больше хранимого объёма: потеря ограничивается с предупреждением
	res1 := domain.NewStorage("res", 10, 0, 100, nil)
	res1.Storage.EvaporationLoss = 25
	nw := buildNetwork(t, []*domain.Node{res1}, nil)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days:    []DayData{{}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 10, res.Evaporation["res"], 1e-6)
	assert.InDelta(t, 0, res.Levels["res"], 1e-6)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, apperror.CodeEvaporationClamped, res.Warnings[0].Code)
	assert.True(t, apperror.IsWarning(res.Warnings[0]))
}

func TestSinglePeriod_BelowDeadPoolWarns(t *testing.T) {
	// Осушенное ниже мёртвого объёма водохранилище не делает задачу
	// неразрешимой: граница переноса ослабляется, вода не отдаётся
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewStorage("res", 500, 1000, 5000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Requests: map[string]float64{"city": 300},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 0, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 500, res.Levels["res"], 1e-6)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, apperror.CodeDeadPoolNear, res.Warnings[0].Code)
}

func TestLookahead_HedgesForPriority(t *testing.T) {
	// Запас 60: сегодня дешёвый запрос 50, через двое суток дорогой 70.
	// С горизонтом 3 вода удерживается, без горизонта уходит сегодня
	build := func(t *testing.T) *domain.Network {
		return buildNetwork(t,
			[]*domain.Node{
				domain.NewStorage("res", 60, 0, 100, nil),
				domain.NewDemand("lp", 0.5, nil),
				domain.NewDemand("hp", 1, nil),
			},
			[]*domain.Link{
				domain.NewLink("res_lp", "res", "lp", domain.Infinity, 0.5*domain.CostDemand),
				domain.NewLink("res_hp", "res", "hp", domain.Infinity, domain.CostDemand),
			},
		)
	}

	day1 := DayData{Requests: map[string]float64{"lp": 50, "hp": 0}}
	day2 := DayData{Requests: map[string]float64{"lp": 0, "hp": 0}}
	day3 := DayData{Requests: map[string]float64{"lp": 0, "hp": 70}}

	nw := build(t)
	plan, err := New(nil).Lookahead(context.Background(), &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days:    []DayData{day1, day2, day3},
	})
	require.NoError(t, err)

	// Вся масса проезжает два переноса к дорогому запросу
	assert.InDelta(t, 0, plan.Delivered["lp"], 1e-6)
	assert.InDelta(t, 60, plan.Levels["res"], 1e-6)
	assert.InDelta(t, -60120, plan.Cost, 1e-6)
	assert.Equal(t, 3, plan.Horizon)

	nw = build(t)
	myopic, err := New(nil).SinglePeriod(context.Background(), &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days:    []DayData{day1},
	})
	require.NoError(t, err)

	assert.InDelta(t, 50, myopic.Delivered["lp"], 1e-6)
	assert.InDelta(t, 10, myopic.Levels["res"], 1e-6)
}

func TestLookahead_CarriesInflowAcrossDays(t *testing.T) {
	// Приток первых суток доступен запросу вторых через перенос
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewStorage("res", 0, 0, 5000, nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_res", "src", "res", domain.Infinity, 0),
			domain.NewLink("res_city", "res", "city", domain.Infinity, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{
			{
				Generation: map[string]float64{"src": 1000},
				Requests:   map[string]float64{"city": 0},
			},
			{
				Generation: map[string]float64{"src": 0},
				Requests:   map[string]float64{"city": 800},
			},
		},
	}

	res, err := New(nil).Lookahead(context.Background(), p)
	require.NoError(t, err)

	assert.InDelta(t, 1000, res.Levels["res"], 1e-6)
	assert.InDelta(t, 0, res.Delivered["city"], 1e-6)
	assert.InDelta(t, 1000, res.Flows["src_res"], 1e-6)
	// 800×(−1000) на вторых сутках, переносы 1000 и 200
	assert.InDelta(t, -801200, res.Cost, 1e-6)
}

func TestLookahead_SingleDayMatchesSinglePeriod(t *testing.T) {
	// Горизонт 1 обязан давать то же решение, что и односуточный вызов
	_, p1 := riverSystem(t)
	single, err := New(nil).SinglePeriod(context.Background(), p1)
	require.NoError(t, err)

	_, p2 := riverSystem(t)
	ahead, err := New(nil).Lookahead(context.Background(), p2)
	require.NoError(t, err)

	assert.Equal(t, single.Flows, ahead.Flows)
	assert.Equal(t, single.Levels, ahead.Levels)
	assert.Equal(t, single.Delivered, ahead.Delivered)
	assert.Equal(t, single.Spills, ahead.Spills)
	assert.Equal(t, single.Cost, ahead.Cost)

	// Попутная проверка самого решения: дорогое звено насыщено до предела
	assert.InDelta(t, 800, single.Delivered["cityA"], 1e-6)
	assert.InDelta(t, 700, single.Delivered["cityB"], 1e-6)
	assert.InDelta(t, 3200, single.Levels["res"], 1e-6)
}

func TestSolver_MassBalance(t *testing.T) {
	// Баланс каждого узла сходится с учётом виртуальных дуг
	nw, p := riverSystem(t)
	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	inflow := func(id string) float64 {
		total := 0.0
		for _, l := range nw.InflowLinks(id) {
			total += res.Flows[l.ID]
		}
		return total
	}
	outflow := func(id string) float64 {
		total := 0.0
		for _, l := range nw.OutflowLinks(id) {
			total += res.Flows[l.ID]
		}
		return total
	}

	for _, n := range nw.Nodes() {
		switch n.Kind {
		case domain.KindSource:
			gen := p.Days[0].Generation[n.ID]
			assert.InDelta(t, gen, outflow(n.ID)-inflow(n.ID), 1e-6, "source %s", n.ID)
		case domain.KindJunction:
			assert.InDelta(t, inflow(n.ID), outflow(n.ID), 1e-6, "junction %s", n.ID)
		case domain.KindDemand:
			assert.InDelta(t, res.Delivered[n.ID], inflow(n.ID)-outflow(n.ID), 1e-6, "demand %s", n.ID)
		case domain.KindStorage:
			available := n.Storage.Level - res.Evaporation[n.ID]
			held := res.Levels[n.ID] + res.Spills[n.ID]
			assert.InDelta(t, available+inflow(n.ID), held+outflow(n.ID), 1e-6, "storage %s", n.ID)
		}
	}
}

func TestSolver_FlowsWithinBounds(t *testing.T) {
	// Каждый поток лежит внутри воронки своего звена
	nw, p := riverSystem(t)
	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	for id, b := range p.Bounds {
		flow := res.Flows[id]
		assert.GreaterOrEqual(t, flow, b.Min-1e-9, "link %s", id)
		assert.LessOrEqual(t, flow, b.Max+1e-9, "link %s", id)
	}
	for _, n := range nw.Storages() {
		level := res.Levels[n.ID]
		assert.GreaterOrEqual(t, level, min(n.Storage.MinCapacity, n.Storage.Level)-1e-9)
		assert.LessOrEqual(t, level, n.Storage.MaxCapacity+1e-9)
	}
}

func TestSolver_VirtualArcsHidden(t *testing.T) {
	// В карте потоков только настоящие звенья, без дуг решателя
	nw, p := riverSystem(t)
	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	assert.Len(t, res.Flows, nw.LinkCount())
	for id := range res.Flows {
		_, ok := nw.Link(id)
		assert.True(t, ok, "unexpected flow key %q", id)
	}
}

func TestSolver_DoesNotMutateNetwork(t *testing.T) {
	nw, p := riverSystem(t)
	_, err := New(nil).SinglePeriod(context.Background(), p)
	require.NoError(t, err)

	// Решатель не трогает состояние предметной сети
	res, _ := nw.Node("res")
	assert.Equal(t, 4000.0, res.Storage.Level)
	cityB, _ := nw.Node("cityB")
	assert.Equal(t, 0.0, cityB.Demand.DeliveredAmount)
	for _, l := range nw.Links() {
		assert.Equal(t, 0.0, l.Flow, "link %s", l.ID)
	}
}

func TestSolver_InfeasibleWhenSourceBlocked(t *testing.T) {
	// Источник обязан отдать 50, но пропускная способность всего 30
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewDemand("city", 1, nil),
		},
		[]*domain.Link{
			domain.NewLink("src_city", "src", "city", 30, domain.CostDemand),
		},
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 50},
			Requests:   map[string]float64{"city": 100},
		}},
	}

	res, err := New(nil).SinglePeriod(context.Background(), p)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperror.Is(err, apperror.CodeInfeasible))
	assert.Contains(t, err.Error(), "src")
}

func TestSolver_DegenerateWhenDisconnected(t *testing.T) {
	// Источник без единого звена: масса структурно не имеет выхода
	nw := buildNetwork(t,
		[]*domain.Node{
			domain.NewSource("src", nil),
			domain.NewDemand("city", 1, nil),
		},
		nil,
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days: []DayData{{
			Generation: map[string]float64{"src": 40},
			Requests:   map[string]float64{"city": 10},
		}},
	}

	_, err := New(nil).SinglePeriod(context.Background(), p)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeDegenerate))
	assert.Contains(t, err.Error(), "src")
}

func TestSolver_InputValidation(t *testing.T) {
	valid := func(t *testing.T) *Problem {
		_, p := riverSystem(t)
		return p
	}

	tests := []struct {
		name    string
		problem func(t *testing.T) *Problem
		code    apperror.ErrorCode
	}{
		{
			name:    "nil_problem",
			problem: func(t *testing.T) *Problem { return nil },
			code:    apperror.CodeNilInput,
		},
		{
			name: "nil_network",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				p.Network = nil
				return p
			},
			code: apperror.CodeNilInput,
		},
		{
			name: "empty_horizon",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				p.Days = nil
				return p
			},
			code: apperror.CodeInvalidArgument,
		},
		{
			name: "missing_inflow",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				delete(p.Days[0].Generation, "src")
				return p
			},
			code: apperror.CodeInvalidArgument,
		},
		{
			name: "missing_request",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				delete(p.Days[0].Requests, "cityB")
				return p
			},
			code: apperror.CodeInvalidArgument,
		},
		{
			name: "negative_request",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				p.Days[0].Requests["cityA"] = -5
				return p
			},
			code: apperror.CodeInvalidArgument,
		},
		{
			name: "missing_bounds",
			problem: func(t *testing.T) *Problem {
				p := valid(t)
				delete(p.Bounds, "j_res")
				return p
			},
			code: apperror.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).SinglePeriod(context.Background(), tt.problem(t))
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestSinglePeriod_RejectsMultiDay(t *testing.T) {
	_, p := riverSystem(t)
	p.Days = append(p.Days, p.Days[0])

	_, err := New(nil).SinglePeriod(context.Background(), p)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestNew_Defaults(t *testing.T) {
	s := New(nil)
	assert.Equal(t, domain.Epsilon, s.opts.Epsilon)
	assert.Equal(t, domain.CostStorage, s.opts.CarryoverCost)

	// Нулевые поля без самостоятельного смысла заполняются умолчаниями
	s = New(&Options{MaxIterations: 7})
	assert.Equal(t, domain.Epsilon, s.opts.Epsilon)
	assert.Equal(t, domain.CostStorage, s.opts.CarryoverCost)
	assert.Equal(t, 7, s.opts.MaxIterations)
}

func TestSolver_CustomCarryoverCost(t *testing.T) {
	nw := buildNetwork(t,
		[]*domain.Node{domain.NewStorage("res", 100, 0, 200, nil)},
		nil,
	)
	p := &Problem{
		Network: nw,
		Bounds:  networkBounds(t, nw),
		Days:    []DayData{{}},
	}

	res, err := New(&Options{CarryoverCost: -5}).SinglePeriod(context.Background(), p)
	require.NoError(t, err)
	assert.InDelta(t, -500, res.Cost, 1e-6)
}

func BenchmarkLookahead(b *testing.B) {
	for _, horizon := range []int{1, 3, 7} {
		b.Run(fmt.Sprintf("cascade10_h%d", horizon), func(b *testing.B) {
			// Каскад из десяти водохранилищ: источник сверху, запрос снизу
			nw := domain.NewNetwork("bench")
			if err := nw.AddNode(domain.NewSource("src", nil)); err != nil {
				b.Fatal(err)
			}
			prev := "src"
			for i := 0; i < 10; i++ {
				id := fmt.Sprintf("res%d", i)
				if err := nw.AddNode(domain.NewStorage(id, 5000, 500, 20000, nil)); err != nil {
					b.Fatal(err)
				}
				link := domain.NewLink(prev+"_"+id, prev, id, domain.Infinity, 0)
				if err := nw.AddLink(link); err != nil {
					b.Fatal(err)
				}
				prev = id
			}
			if err := nw.AddNode(domain.NewDemand("city", 1, nil)); err != nil {
				b.Fatal(err)
			}
			if err := nw.AddLink(domain.NewLink(prev+"_city", prev, "city", domain.Infinity, domain.CostDemand)); err != nil {
				b.Fatal(err)
			}

			bounds := make(map[string]domain.Bounds, nw.LinkCount())
			for _, l := range nw.Links() {
				bb, err := nw.LinkBounds(l)
				if err != nil {
					b.Fatal(err)
				}
				bounds[l.ID] = bb
			}
			days := make([]DayData, horizon)
			for t := range days {
				days[t] = DayData{
					Generation: map[string]float64{"src": 3000},
					Requests:   map[string]float64{"city": 2500},
				}
			}
			p := &Problem{Network: nw, Bounds: bounds, Days: days}
			s := New(nil)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Lookahead(context.Background(), p); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
