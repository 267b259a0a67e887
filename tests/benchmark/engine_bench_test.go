package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/engine"
	"github.com/jlillywh/hydrosim/pkg/logger"
)

func init() {
	logger.Init("error")
}

func ptr(v float64) *float64 { return &v }

// benchScenario собирает сеть: источник, водохранилище и demands
// потребителей, измеренный климат на days суток. Приток масштабируется
// под суммарный спрос, чтобы решатель работал без дефицитов
func benchScenario(demands, days int) *config.Scenario {
	rows := make([]config.RowSpec, days)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = config.RowSpec{
			Date:           start.AddDate(0, 0, i).Format(time.DateOnly),
			TempMax:        22 + float64(i%5),
			TempMin:        9 + float64(i%3),
			SolarRadiation: 18 + float64(i%4),
		}
	}

	inflow := make([]float64, days)
	for i := range inflow {
		inflow[i] = 40 * float64(demands)
	}

	nodes := []config.NodeSpec{
		{
			ID:   "src",
			Kind: "source",
			Inflow: &config.InflowSpec{
				Kind:   "timeseries",
				Values: inflow,
			},
		},
		{
			ID:          "res",
			Kind:        "storage",
			Level:       1000,
			MinCapacity: 100,
			MaxCapacity: 10000,
			EAV: &config.EAVSpec{
				Extrapolate: true,
				Points: []config.EAVPointSpec{
					{Elevation: 100, Area: 0, Volume: 0},
					{Elevation: 120, Area: 20000, Volume: 10000},
				},
			},
		},
	}
	links := []config.LinkSpec{
		{ID: "src-res", From: "src", To: "res", Capacity: ptr(1e6)},
	}

	for i := 0; i < demands; i++ {
		id := fmt.Sprintf("city%02d", i)
		nodes = append(nodes, config.NodeSpec{
			ID:       id,
			Kind:     "demand",
			Priority: float64(i + 1),
			Demand: &config.DemandSpec{
				Kind:       "municipal",
				Population: 500,
				PerCapita:  0.05,
			},
		})
		links = append(links, config.LinkSpec{
			ID:       "res-" + id,
			From:     "res",
			To:       id,
			Capacity: ptr(500),
		})
	}

	return &config.Scenario{
		Name:     fmt.Sprintf("bench-%d-demands", demands),
		Settings: config.SettingsSpec{Timesteps: days, LookaheadDays: 1},
		Climate:  config.ClimateSpec{Kind: "timeseries", Latitude: 46.5, Rows: rows},
		Nodes:    nodes,
		Links:    links,
	}
}

// buildEngine компилирует сценарий заново: прогон мутирует состояние
// сети, поэтому движок одноразовый
func buildEngine(b *testing.B, sc *config.Scenario) *engine.Engine {
	b.Helper()
	sim, ve := sc.Compile()
	if sim == nil {
		b.Fatalf("scenario failed to compile: %v", ve.ErrorMessages())
	}
	eng, err := engine.New(&engine.Config{
		Network:  sim.Network,
		Climate:  sim.Climate,
		Settings: engine.Settings(sim.Settings),
		Solver:   sim.Solver,
	})
	if err != nil {
		b.Fatalf("failed to build engine: %v", err)
	}
	return eng
}

func BenchmarkEngineRun(b *testing.B) {
	sizes := []int{2, 10, 25}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("demands_%d", size), func(b *testing.B) {
			sc := benchScenario(size, 30)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				eng := buildEngine(b, sc)
				b.StartTimer()

				if _, err := eng.Run(context.Background()); err != nil {
					b.Fatalf("run failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkEngineRun_Lookahead(b *testing.B) {
	horizons := []int{1, 7, 14}

	for _, days := range horizons {
		b.Run(fmt.Sprintf("lookahead_%d", days), func(b *testing.B) {
			sc := benchScenario(10, 30)
			sc.Settings.LookaheadDays = days
			// Ряд на 30 суток покрывает timesteps + lookahead - 1
			sc.Settings.Timesteps = 30 - days + 1

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				eng := buildEngine(b, sc)
				b.StartTimer()

				if _, err := eng.Run(context.Background()); err != nil {
					b.Fatalf("run failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkScenarioCompile(b *testing.B) {
	sizes := []int{10, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("demands_%d", size), func(b *testing.B) {
			sc := benchScenario(size, 30)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if sim, _ := sc.Compile(); sim == nil {
					b.Fatal("scenario failed to compile")
				}
			}
		})
	}
}
