package integration_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/logger"
)

func init() {
	logger.Init("error")
}

// writeScenarioDir раскладывает файлы сценария во временный каталог
// и возвращает путь к scenario.yaml
func writeScenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "scenario.yaml")
}

// loadScenario загружает сценарий из YAML-строки
func loadScenario(t *testing.T, yaml string) *config.Scenario {
	t.Helper()
	path := writeScenarioDir(t, map[string]string{"scenario.yaml": yaml})
	sc, err := config.LoadScenario(path)
	if err != nil {
		t.Fatalf("failed to load scenario: %v", err)
	}
	return sc
}

// climateRowsYAML строит измеренный ряд с 1 июня 2024, с лёгким ходом
// температуры и радиации, чтобы испарение не было константой
func climateRowsYAML(days int) string {
	var b strings.Builder
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		fmt.Fprintf(&b, "    - date: %q\n", d.Format(time.DateOnly))
		fmt.Fprintf(&b, "      temp_max: %g\n", 24.0+float64(i%3))
		fmt.Fprintf(&b, "      temp_min: %g\n", 11.0+float64(i%2))
		fmt.Fprintf(&b, "      solar_radiation: %g\n", 20.0+float64(i%4))
	}
	return b.String()
}

// floatListYAML повторяет значение n раз как YAML-список
func floatListYAML(v float64, n int) string {
	vals := make([]string, n)
	for i := range vals {
		vals[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(vals, ", ") + "]"
}

// basinYAML собирает сценарий: источник, водохранилище и два потребителя.
// Приток 100 м³/сут против суммарного спроса 80, так что при достаточном
// климатическом ряде прогон завершается без дефицитов
func basinYAML(timesteps, lookahead, dataDays int) string {
	return fmt.Sprintf(`
name: basin-integration
description: reservoir feeding a city and a farm
settings:
  timesteps: %d
  lookahead_days: %d
  perfect_foresight: false
  rolling_horizon: false
climate:
  kind: timeseries
  latitude: 46.5
  rows:
%s
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: %s
  - id: res
    kind: storage
    level: 500
    min_capacity: 50
    max_capacity: 2000
    dead_pool_margin: 25
    eav:
      extrapolate: true
      points:
        - elevation: 100
          area: 0
          volume: 0
        - elevation: 110
          area: 5000
          volume: 2000
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: municipal
      population: 1000
      per_capita: 0.05
  - id: farm
    kind: demand
    priority: 2
    demand:
      kind: timeseries
      values: %s
links:
  - id: src-res
    from: src
    to: res
    capacity: 1000
  - id: res-city
    from: res
    to: city
    capacity: 500
  - id: res-farm
    from: res
    to: farm
    capacity: 500
`, timesteps, lookahead, climateRowsYAML(dataDays),
		floatListYAML(100, dataDays), floatListYAML(30, dataDays))
}

// generatorYAML собирает сценарий со стохастическим климатом: приток
// считается моделью осадки-сток с генерируемых осадков, поэтому реплики
// с разным зерном дают разные прогоны
func generatorYAML(timesteps int, seed int64) string {
	return fmt.Sprintf(`
name: basin-ensemble
description: stochastic climate over a rainfall-runoff catchment
settings:
  timesteps: %d
  lookahead_days: 1
  perfect_foresight: false
  rolling_horizon: false
climate:
  kind: generator
  latitude: 46.5
  file: params.csv
  start: "2024-01-01"
  seed: %d
nodes:
  - id: src
    kind: source
    inflow:
      kind: hydrology
      area: 2.0e6
  - id: res
    kind: storage
    level: 300
    min_capacity: 30
    max_capacity: 2000
    eav:
      extrapolate: true
      points:
        - elevation: 100
          area: 0
          volume: 0
        - elevation: 110
          area: 4000
          volume: 2000
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: municipal
      population: 1000
      per_capita: 0.05
links:
  - id: src-res
    from: src
    to: res
    capacity: 5000
  - id: res-city
    from: res
    to: city
    capacity: 500
`, timesteps, seed)
}

// wgenParamsCSV параметры генератора погоды умеренного климата
const wgenParamsCSV = `month,pww,pwd,alpha,beta
jan,0.45,0.25,1.2,8.5
feb,0.42,0.23,1.1,7.8
mar,0.40,0.22,1.0,7.2
apr,0.38,0.20,0.9,6.5
may,0.35,0.18,0.8,5.8
jun,0.30,0.15,0.7,5.0
jul,0.25,0.12,0.6,4.5
aug,0.28,0.15,0.7,5.2
sep,0.32,0.18,0.8,6.0
oct,0.38,0.22,1.0,7.0
nov,0.42,0.25,1.1,7.8
dec,0.48,0.27,1.3,9.2

parameter,value
txmd,20.0
atx,10.0
txmw,18.0
tn,10.0
atn,8.0
cvtx,0.1
acvtx,0.05
cvtn,0.1
acvtn,0.05

parameter,value
rmd,15.0
ar,5.0
rmw,12.0
`
