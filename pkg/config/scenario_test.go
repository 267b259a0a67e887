package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// writeScenario записывает YAML во временный файл и загружает его
func writeScenario(t *testing.T, content string) *Scenario {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write scenario: %v", err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("failed to load scenario: %v", err)
	}
	return sc
}

func hasCode(errs []*apperror.Error, code apperror.ErrorCode) bool {
	for _, e := range errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

const tinyClimate = `
climate:
  kind: timeseries
  latitude: 46.5
  rows:
    - date: "2024-06-01"
      temp_max: 25
      temp_min: 12
      solar_radiation: 22
    - date: "2024-06-02"
      temp_max: 23
      temp_min: 11
      solar_radiation: 18
    - date: "2024-06-03"
      temp_max: 26
      temp_min: 13
      solar_radiation: 23
`

func TestScenario_Compile_Full(t *testing.T) {
	sc := writeScenario(t, `
name: demo-basin
description: reservoir feeding a town through a junction
settings:
  timesteps: 3
  lookahead_days: 2
  perfect_foresight: true
  rolling_horizon: true
solver:
  carryover_cost: -2
  timeout: 10s
`+tinyClimate+`
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [50, 50, 50]
  - id: res
    kind: storage
    level: 200
    min_capacity: 50
    max_capacity: 1000
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
  - id: j
    kind: junction
  - id: city
    kind: demand
    priority: 2
    demand:
      kind: municipal
      population: 1000
      per_capita: 0.05
links:
  - id: src-res
    from: src
    to: res
    capacity: 1000
  - id: res-j
    from: res
    to: j
    capacity: 500
    cost: -1
    hydraulic:
      kind: weir
      coefficient: 1.7
      crest_length: 12
      crest_level: 104
  - id: j-city
    from: j
    to: city
    control:
      kind: fraction
      fraction: 0.8
`)

	sim, ve := sc.Compile()
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.ErrorMessages())
	}
	if ve.HasWarnings() {
		t.Errorf("unexpected warnings: %v", ve.WarningMessages())
	}
	if sim == nil {
		t.Fatal("expected a compiled simulation")
	}

	if sim.Name != "demo-basin" {
		t.Errorf("expected name 'demo-basin', got %s", sim.Name)
	}
	if sim.Settings.Timesteps != 3 || sim.Settings.LookaheadDays != 2 {
		t.Errorf("settings not carried over: %+v", sim.Settings)
	}
	if !sim.Settings.PerfectForesight || !sim.Settings.RollingHorizon {
		t.Errorf("boolean settings not carried over: %+v", sim.Settings)
	}
	if sim.Solver == nil || sim.Solver.CarryoverCost != -2 {
		t.Errorf("solver options not carried over: %+v", sim.Solver)
	}
	if sim.Solver.Timeout != 10*time.Second {
		t.Errorf("expected solver timeout 10s, got %v", sim.Solver.Timeout)
	}

	if sim.Network.NodeCount() != 4 {
		t.Errorf("expected 4 nodes, got %d", sim.Network.NodeCount())
	}
	if sim.Network.LinkCount() != 3 {
		t.Errorf("expected 3 links, got %d", sim.Network.LinkCount())
	}

	res, ok := sim.Network.Node("res")
	if !ok {
		t.Fatal("storage res missing")
	}
	if res.Storage.DeadPoolMargin != 25 {
		t.Errorf("expected dead pool margin 25, got %g", res.Storage.DeadPoolMargin)
	}
	if res.Storage.EAV == nil {
		t.Error("expected a compiled elevation-area-volume table")
	}

	srcRes, _ := sim.Network.Link("src-res")
	if srcRes.PhysicalCapacity != 1000 || srcRes.Cost != 0 {
		t.Errorf("unexpected src-res bounds: capacity %g cost %g", srcRes.PhysicalCapacity, srcRes.Cost)
	}

	resJ, _ := sim.Network.Link("res-j")
	if resJ.Cost != -1 {
		t.Errorf("explicit cost overridden: got %g", resJ.Cost)
	}
	if resJ.Hydraulic == nil || resJ.Hydraulic.Kind != domain.HydraulicWeir {
		t.Errorf("weir not compiled: %+v", resJ.Hydraulic)
	}

	// Цена доставки по умолчанию кодирует приоритет потребителя
	jCity, _ := sim.Network.Link("j-city")
	if jCity.PhysicalCapacity != domain.Infinity {
		t.Errorf("expected unbounded delivery link, got %g", jCity.PhysicalCapacity)
	}
	if want := 2 * domain.CostDemand; jCity.Cost != want {
		t.Errorf("expected default delivery cost %g, got %g", want, jCity.Cost)
	}
	if jCity.Control == nil || jCity.Control.Kind != domain.ControlFraction || jCity.Control.Fraction != 0.8 {
		t.Errorf("control not compiled: %+v", jCity.Control)
	}

	d, err := sim.Climate.Next()
	if err != nil {
		t.Fatalf("climate supplier failed: %v", err)
	}
	if !d.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first climate date: %v", d.Date)
	}
	if d.TempMax != 25 {
		t.Errorf("expected tmax 25, got %g", d.TempMax)
	}
	if d.ReferenceET0 <= 0 {
		t.Errorf("expected computed ET0, got %g", d.ReferenceET0)
	}
}

func TestScenario_Compile_AccumulatesErrors(t *testing.T) {
	sc := writeScenario(t, `
settings:
  timesteps: 0
climate:
  kind: oracle
nodes:
  - id: plant
    kind: factory
  - id: city
    kind: demand
    priority: 1
  - id: src
    kind: source
    inflow:
      kind: magic
`)

	sim, ve := sc.Compile()
	if sim != nil {
		t.Fatal("expected compilation to fail")
	}
	if len(ve.Errors) != 5 {
		t.Fatalf("expected 5 accumulated errors, got %d: %v", len(ve.Errors), ve.ErrorMessages())
	}
	if !hasCode(ve.Errors, apperror.CodeInvalidArgument) {
		t.Error("expected an invalid-argument error")
	}
	if !hasCode(ve.Errors, apperror.CodeClimateData) {
		t.Error("expected a climate error")
	}
	if !hasCode(ve.Errors, apperror.CodeInvalidNodeKind) {
		t.Error("expected an unknown-node-kind error")
	}

	var fields []string
	for _, e := range ve.Errors {
		fields = append(fields, e.Field)
	}
	joined := strings.Join(fields, " ")
	for _, want := range []string{"settings.timesteps", "climate.kind", "nodes.plant", "nodes.city", "nodes.src.inflow.kind"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected an error bound to %q, got fields %v", want, fields)
		}
	}
}

func TestScenario_Compile_MergesNetworkValidation(t *testing.T) {
	sc := writeScenario(t, `
settings:
  timesteps: 3
`+tinyClimate+`
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [10, 10, 10]
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: timeseries
      values: [10, 10, 10]
links:
  - id: src-city
    from: src
    to: city
  - id: src-ghost
    from: src
    to: ghost
`)

	sim, ve := sc.Compile()
	if sim != nil {
		t.Fatal("expected compilation to fail on the dangling link")
	}
	if !hasCode(ve.Errors, apperror.CodeDanglingLink) {
		t.Errorf("expected a dangling-link error, got %v", ve.ErrorMessages())
	}
}

func TestScenario_Compile_CoercesDemandPriority(t *testing.T) {
	sc := writeScenario(t, `
settings:
  timesteps: 3
`+tinyClimate+`
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [10, 10, 10]
  - id: city
    kind: demand
    demand:
      kind: timeseries
      values: [10, 10, 10]
links:
  - id: src-city
    from: src
    to: city
`)

	sim, ve := sc.Compile()
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.ErrorMessages())
	}

	city, _ := sim.Network.Node("city")
	if city.Demand.Priority != 1 {
		t.Errorf("expected priority coerced to 1, got %g", city.Demand.Priority)
	}
	l, _ := sim.Network.Link("src-city")
	if l.Cost != domain.CostDemand {
		t.Errorf("expected delivery cost %g, got %g", domain.CostDemand, l.Cost)
	}
}

func TestScenario_Compile_RejectsRowsAndFileTogether(t *testing.T) {
	sc := writeScenario(t, `
settings:
  timesteps: 1
climate:
  kind: timeseries
  file: climate.csv
  rows:
    - date: "2024-06-01"
      temp_max: 25
      temp_min: 12
      solar_radiation: 22
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [10]
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: timeseries
      values: [10]
links:
  - id: src-city
    from: src
    to: city
`)

	sim, ve := sc.Compile()
	if sim != nil {
		t.Fatal("expected compilation to fail")
	}
	if !hasCode(ve.Errors, apperror.CodeClimateData) {
		t.Errorf("expected a climate error, got %v", ve.ErrorMessages())
	}
}

func TestScenario_Compile_ClimateFromCSV(t *testing.T) {
	dir := t.TempDir()

	climateCSV := `date,precip,tmax,tmin,srad
2024-06-01,0.0,25.0,12.0,22.0
2024-06-02,4.5,23.5,11.0,18.0
`
	if err := os.WriteFile(filepath.Join(dir, "climate.csv"), []byte(climateCSV), 0644); err != nil {
		t.Fatalf("failed to write climate csv: %v", err)
	}

	content := `
settings:
  timesteps: 2
climate:
  kind: timeseries
  latitude: 46.5
  file: climate.csv
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [10, 10]
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: timeseries
      values: [10, 10]
links:
  - id: src-city
    from: src
    to: city
`
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write scenario: %v", err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("failed to load scenario: %v", err)
	}

	// Относительный путь к CSV развёрнут от каталога сценария
	sim, ve := sc.Compile()
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.ErrorMessages())
	}

	d, err := sim.Climate.Next()
	if err != nil {
		t.Fatalf("climate supplier failed: %v", err)
	}
	if !d.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first climate date: %v", d.Date)
	}
}

func TestScenario_Compile_GeneratorClimate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "wgen.csv"), []byte(paramsCSV()), 0644); err != nil {
		t.Fatalf("failed to write parameter csv: %v", err)
	}

	content := `
settings:
  timesteps: 5
climate:
  kind: generator
  latitude: 45
  file: wgen.csv
  start: "2025-01-01"
  seed: 7
nodes:
  - id: src
    kind: source
    inflow:
      kind: timeseries
      values: [10, 10, 10, 10, 10]
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: timeseries
      values: [10, 10, 10, 10, 10]
links:
  - id: src-city
    from: src
    to: city
`
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write scenario: %v", err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("failed to load scenario: %v", err)
	}

	sim, ve := sc.Compile()
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.ErrorMessages())
	}

	d, err := sim.Climate.Next()
	if err != nil {
		t.Fatalf("generator failed: %v", err)
	}
	if !d.Date.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected first generated date: %v", d.Date)
	}
}

func TestScenario_Compile_HydrologyInflow(t *testing.T) {
	sc := writeScenario(t, `
settings:
  timesteps: 3
`+tinyClimate+`
nodes:
  - id: catchment
    kind: source
    inflow:
      kind: hydrology
      area: 1.0e6
      snow:
        melt_factor: 3.0
        rain_temp: 2.0
        snow_temp: 0.0
  - id: city
    kind: demand
    priority: 1
    demand:
      kind: agriculture
      area: 2.0e5
      kc: 0.9
links:
  - id: catchment-city
    from: catchment
    to: city
`)

	sim, ve := sc.Compile()
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.ErrorMessages())
	}
	if sim == nil {
		t.Fatal("expected a compiled simulation")
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if !apperror.Is(err, apperror.CodeInvalidArgument) {
		t.Errorf("expected an invalid-argument error, got %v", err)
	}
}

// paramsCSV возвращает минимальный валидный CSV параметров генератора
func paramsCSV() string {
	var b strings.Builder
	b.WriteString("month,pww,pwd,alpha,beta\n")
	for _, m := range []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"} {
		b.WriteString(m + ",0.4,0.2,1.0,8.0\n")
	}
	b.WriteString("\nparameter,value\n")
	b.WriteString("txmd,20\natx,10\ntxmw,18\ntn,10\natn,8\ncvtx,0.1\nacvtx,0.05\ncvtn,0.1\nacvtn,0.05\n")
	b.WriteString("\nparameter,value\n")
	b.WriteString("rmd,15\nar,5\nrmw,12\n")
	return b.String()
}
