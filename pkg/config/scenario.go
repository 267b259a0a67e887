package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/climate"
	"github.com/jlillywh/hydrosim/pkg/domain"
	"github.com/jlillywh/hydrosim/pkg/solver"
	"github.com/jlillywh/hydrosim/pkg/strategy"
)

// Scenario - описание расчётного сценария: климат, узлы и звенья сети,
// настройки прогона. Загружается из YAML и компилируется в Simulation
type Scenario struct {
	Name        string       `koanf:"name"`
	Description string       `koanf:"description"`
	Settings    SettingsSpec `koanf:"settings"`
	Solver      *SolverSpec  `koanf:"solver"`
	Climate     ClimateSpec  `koanf:"climate"`
	Nodes       []NodeSpec   `koanf:"nodes"`
	Links       []LinkSpec   `koanf:"links"`

	dir string // каталог файла сценария, база для относительных путей
}

// SettingsSpec - настройки прогона; поля совпадают с engine.Settings
type SettingsSpec struct {
	Timesteps        int  `koanf:"timesteps"`
	LookaheadDays    int  `koanf:"lookahead_days"`
	PerfectForesight bool `koanf:"perfect_foresight"`
	RollingHorizon   bool `koanf:"rolling_horizon"`
}

// SolverSpec - настройки решателя
type SolverSpec struct {
	CarryoverCost float64       `koanf:"carryover_cost"`
	MaxIterations int           `koanf:"max_iterations"`
	Timeout       time.Duration `koanf:"timeout"`
}

// ClimateSpec - источник климатических данных: воспроизведение ряда
// (rows внутри сценария либо file с CSV) или стохастический генератор
// (file с CSV параметров, start и seed)
type ClimateSpec struct {
	Kind      string    `koanf:"kind"` // timeseries, generator
	Latitude  float64   `koanf:"latitude"`
	Elevation float64   `koanf:"elevation"`
	File      string    `koanf:"file"`
	Rows      []RowSpec `koanf:"rows"`
	Start     string    `koanf:"start"` // YYYY-MM-DD, только для generator
	Seed      int64     `koanf:"seed"`
}

// RowSpec - строка измеренного климатического ряда
type RowSpec struct {
	Date           string  `koanf:"date"` // YYYY-MM-DD
	Precipitation  float64 `koanf:"precipitation"`
	TempMax        float64 `koanf:"temp_max"`
	TempMin        float64 `koanf:"temp_min"`
	SolarRadiation float64 `koanf:"solar_radiation"`
}

// NodeSpec - узел сети; набор значимых полей зависит от kind
type NodeSpec struct {
	ID   string `koanf:"id"`
	Kind string `koanf:"kind"` // source, junction, storage, demand

	// storage
	Level          float64  `koanf:"level"`
	MinCapacity    float64  `koanf:"min_capacity"`
	MaxCapacity    float64  `koanf:"max_capacity"`
	DeadPoolMargin float64  `koanf:"dead_pool_margin"`
	EAV            *EAVSpec `koanf:"eav"`

	// source
	Inflow *InflowSpec `koanf:"inflow"`

	// demand
	Priority float64     `koanf:"priority"`
	Demand   *DemandSpec `koanf:"demand"`
}

// EAVSpec - батиметрическая таблица водохранилища
type EAVSpec struct {
	Extrapolate bool           `koanf:"extrapolate"`
	Points      []EAVPointSpec `koanf:"points"`
}

// EAVPointSpec - точка таблицы отметка-площадь-объём
type EAVPointSpec struct {
	Elevation float64 `koanf:"elevation"`
	Area      float64 `koanf:"area"`
	Volume    float64 `koanf:"volume"`
}

// InflowSpec - стратегия притока источника
type InflowSpec struct {
	Kind   string    `koanf:"kind"` // timeseries, hydrology
	Values []float64 `koanf:"values"`
	Area   float64   `koanf:"area"` // площадь водосбора, м²
	Snow   *SnowSpec `koanf:"snow"`
	AWBM   *AWBMSpec `koanf:"awbm"`
}

// SnowSpec - параметры снеговой модели; nil в InflowSpec означает умолчания
type SnowSpec struct {
	MeltFactor float64 `koanf:"melt_factor"`
	RainTemp   float64 `koanf:"rain_temp"`
	SnowTemp   float64 `koanf:"snow_temp"`
}

// AWBMSpec - параметры модели осадки-сток; nil в InflowSpec означает умолчания
type AWBMSpec struct {
	C1            float64 `koanf:"c1"`
	C2            float64 `koanf:"c2"`
	C3            float64 `koanf:"c3"`
	A1            float64 `koanf:"a1"`
	A2            float64 `koanf:"a2"`
	A3            float64 `koanf:"a3"`
	BaseflowCoeff float64 `koanf:"baseflow_coeff"`
	SurfaceCoeff  float64 `koanf:"surface_coeff"`
}

// DemandSpec - модель водопотребления
type DemandSpec struct {
	Kind       string    `koanf:"kind"` // municipal, agriculture, timeseries
	Population float64   `koanf:"population"`
	PerCapita  float64   `koanf:"per_capita"` // м³/чел/сут
	Area       float64   `koanf:"area"`       // орошаемая площадь, м²
	Kc         float64   `koanf:"kc"`
	Values     []float64 `koanf:"values"`
}

// LinkSpec - звено сети. Отсутствующая capacity означает неограниченное
// звено; отсутствующая cost для звена в узел спроса выводится из приоритета
type LinkSpec struct {
	ID        string         `koanf:"id"`
	From      string         `koanf:"from"`
	To        string         `koanf:"to"`
	Capacity  *float64       `koanf:"capacity"`
	MinFlow   float64        `koanf:"min_flow"`
	Cost      *float64       `koanf:"cost"`
	Hydraulic *HydraulicSpec `koanf:"hydraulic"`
	Control   *ControlSpec   `koanf:"control"`
}

// HydraulicSpec - гидравлическая модель звена
type HydraulicSpec struct {
	Kind        string  `koanf:"kind"` // weir, pipe
	Coefficient float64 `koanf:"coefficient"`
	CrestLength float64 `koanf:"crest_length"`
	CrestLevel  float64 `koanf:"crest_level"`
	Capacity    float64 `koanf:"capacity"`
}

// ControlSpec - управляющее правило звена
type ControlSpec struct {
	Kind     string  `koanf:"kind"` // fraction, absolute, switch
	Fraction float64 `koanf:"fraction"`
	Limit    float64 `koanf:"limit"`
	Open     bool    `koanf:"open"`
}

// Simulation - скомпилированный сценарий: проверенная сеть, поставщик
// климата и настройки. Пакет не импортирует движок (pkg/cache зависит от
// config, движок — от кэша), поэтому настройки переносит в него вызывающий
type Simulation struct {
	Name        string
	Description string
	Network     *domain.Network
	Climate     domain.ClimateSupplier
	Settings    SettingsSpec
	Solver      *solver.Options
}

// LoadScenario читает сценарий из YAML-файла. Относительные пути внутри
// сценария разворачиваются от его каталога
func LoadScenario(path string) (*Scenario, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument,
			fmt.Sprintf("scenario file %q unreadable", path))
	}

	var s Scenario
	if err := k.Unmarshal("", &s); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument,
			fmt.Sprintf("scenario file %q does not match the schema", path))
	}

	s.dir = filepath.Dir(path)
	return &s, nil
}

// Compile собирает из сценария сеть со стратегиями и проверяет её через
// Network.Validate. Ошибки не обрывают сборку, а накапливаются, чтобы
// один прогон показал все проблемы файла; результат возвращается только
// при их отсутствии. Накопитель может нести предупреждения и при успехе
func (s *Scenario) Compile() (*Simulation, *apperror.ValidationErrors) {
	ve := apperror.NewValidationErrors()

	if s.Settings.Timesteps <= 0 {
		ve.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("timesteps must be positive, got %d", s.Settings.Timesteps),
			"settings.timesteps")
	}

	var opts *solver.Options
	if s.Solver != nil {
		opts = &solver.Options{
			CarryoverCost: s.Solver.CarryoverCost,
			MaxIterations: s.Solver.MaxIterations,
			Timeout:       s.Solver.Timeout,
		}
		// Ноль означает умолчание и проверяется движком
		if opts.CarryoverCost != 0 {
			if err := domain.ValidateCostOrder(domain.CostDemand, opts.CarryoverCost, domain.CostSpill); err != nil {
				addErr(ve, err, "solver.carryover_cost")
			}
		}
	}

	supplier := s.compileClimate(ve)

	name := s.Name
	if name == "" {
		name = "scenario"
	}
	nw := domain.NewNetwork(name)

	for i := range s.Nodes {
		spec := &s.Nodes[i]
		field := nodeField(i, spec.ID)
		n := compileNode(spec, ve, field)
		if n == nil {
			continue
		}
		if err := nw.AddNode(n); err != nil {
			addErr(ve, err, field)
		}
	}

	for i := range s.Links {
		spec := &s.Links[i]
		field := linkField(i, spec.ID)
		l := compileLink(spec, nw, ve, field)
		if l == nil {
			continue
		}
		if err := nw.AddLink(l); err != nil {
			addErr(ve, err, field)
		}
	}

	if ve.HasErrors() {
		return nil, ve
	}

	ve.Merge(nw.Validate())
	if ve.HasErrors() {
		return nil, ve
	}

	return &Simulation{
		Name:        name,
		Description: s.Description,
		Network:     nw,
		Climate:     supplier,
		Settings:    s.Settings,
		Solver:      opts,
	}, ve
}

// compileClimate строит поставщика климата; при ошибках возвращает nil
func (s *Scenario) compileClimate(ve *apperror.ValidationErrors) domain.ClimateSupplier {
	c := &s.Climate
	site := climate.Site{Latitude: c.Latitude, Elevation: c.Elevation}

	switch c.Kind {
	case "timeseries":
		rows := s.climateRows(ve)
		if rows == nil {
			return nil
		}
		ts, err := climate.NewTimeSeries(site, rows)
		if err != nil {
			addErr(ve, err, "climate")
			return nil
		}
		return ts

	case "generator":
		if c.File == "" {
			ve.AddErrorWithField(apperror.CodeClimateData,
				"generator needs a parameter csv in climate.file", "climate.file")
			return nil
		}
		params, err := s.loadParams(c.File)
		if err != nil {
			addErr(ve, err, "climate.file")
			return nil
		}
		params.Latitude = c.Latitude
		params.Seed = c.Seed

		start, err := time.Parse(time.DateOnly, c.Start)
		if err != nil {
			ve.AddErrorWithField(apperror.CodeClimateData,
				fmt.Sprintf("invalid start date %q, want YYYY-MM-DD", c.Start), "climate.start")
			return nil
		}
		g, err := climate.NewGenerator(params, start)
		if err != nil {
			addErr(ve, err, "climate")
			return nil
		}
		return g

	default:
		ve.AddErrorWithField(apperror.CodeClimateData,
			fmt.Sprintf("unknown climate kind %q, want timeseries or generator", c.Kind),
			"climate.kind")
		return nil
	}
}

// climateRows собирает строки измеренного ряда из сценария или CSV-файла
func (s *Scenario) climateRows(ve *apperror.ValidationErrors) []climate.Row {
	c := &s.Climate
	switch {
	case len(c.Rows) > 0 && c.File != "":
		ve.AddErrorWithField(apperror.CodeClimateData,
			"specify either inline rows or a csv file, not both", "climate")
		return nil

	case c.File != "":
		f, err := os.Open(s.resolve(c.File))
		if err != nil {
			ve.AddErrorWithField(apperror.CodeClimateData,
				fmt.Sprintf("climate csv unreadable: %v", err), "climate.file")
			return nil
		}
		defer f.Close()
		rows, err := climate.RowsFromCSV(f)
		if err != nil {
			addErr(ve, err, "climate.file")
			return nil
		}
		return rows

	case len(c.Rows) > 0:
		rows := make([]climate.Row, 0, len(c.Rows))
		ok := true
		for i, rs := range c.Rows {
			date, err := time.Parse(time.DateOnly, rs.Date)
			if err != nil {
				ve.AddErrorWithField(apperror.CodeClimateData,
					fmt.Sprintf("invalid date %q, want YYYY-MM-DD", rs.Date),
					fmt.Sprintf("climate.rows[%d]", i))
				ok = false
				continue
			}
			rows = append(rows, climate.Row{
				Date:           date,
				Precipitation:  rs.Precipitation,
				TempMax:        rs.TempMax,
				TempMin:        rs.TempMin,
				SolarRadiation: rs.SolarRadiation,
			})
		}
		if !ok {
			return nil
		}
		return rows

	default:
		ve.AddErrorWithField(apperror.CodeClimateData,
			"timeseries needs inline rows or a csv file", "climate")
		return nil
	}
}

// loadParams читает параметры генератора погоды из CSV
func (s *Scenario) loadParams(path string) (climate.Params, error) {
	f, err := os.Open(s.resolve(path))
	if err != nil {
		return climate.Params{}, apperror.Wrap(err, apperror.CodeClimateData,
			"generator parameter csv unreadable")
	}
	defer f.Close()
	return climate.ParamsFromCSV(f)
}

// compileNode строит узел сети; при ошибках возвращает nil
func compileNode(spec *NodeSpec, ve *apperror.ValidationErrors, field string) *domain.Node {
	switch spec.Kind {
	case "junction":
		return domain.NewJunction(spec.ID)

	case "storage":
		var eav *domain.EAVTable
		if spec.EAV != nil {
			points := make([]domain.EAVPoint, len(spec.EAV.Points))
			for i, p := range spec.EAV.Points {
				points[i] = domain.EAVPoint{Elevation: p.Elevation, Area: p.Area, Volume: p.Volume}
			}
			table, err := domain.NewEAVTable(points, spec.EAV.Extrapolate)
			if err != nil {
				addErr(ve, err, field+".eav")
				return nil
			}
			eav = table
		}
		n := domain.NewStorage(spec.ID, spec.Level, spec.MinCapacity, spec.MaxCapacity, eav)
		n.Storage.DeadPoolMargin = spec.DeadPoolMargin
		return n

	case "source":
		if spec.Inflow == nil {
			ve.AddErrorWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("source %q needs an inflow strategy", spec.ID), field)
			return nil
		}
		st := compileInflow(spec.Inflow, ve, field+".inflow")
		if st == nil {
			return nil
		}
		return domain.NewSource(spec.ID, st)

	case "demand":
		if spec.Demand == nil {
			ve.AddErrorWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("demand %q needs a demand model", spec.ID), field)
			return nil
		}
		st := compileDemand(spec.Demand, ve, field+".demand")
		if st == nil {
			return nil
		}
		return domain.NewDemand(spec.ID, spec.Priority, st)

	default:
		ve.AddErrorWithField(apperror.CodeInvalidNodeKind,
			fmt.Sprintf("unknown node kind %q, want source, junction, storage or demand", spec.Kind),
			field)
		return nil
	}
}

// compileInflow строит стратегию притока источника
func compileInflow(spec *InflowSpec, ve *apperror.ValidationErrors, field string) domain.InflowStrategy {
	switch spec.Kind {
	case "timeseries":
		st, err := strategy.NewTimeSeries(spec.Values)
		if err != nil {
			addErr(ve, err, field)
			return nil
		}
		return st

	case "hydrology":
		snow := strategy.DefaultSnow17()
		if spec.Snow != nil {
			snow = strategy.Snow17{
				MeltFactor: spec.Snow.MeltFactor,
				RainTemp:   spec.Snow.RainTemp,
				SnowTemp:   spec.Snow.SnowTemp,
			}
		}
		awbm := strategy.DefaultAWBM()
		if spec.AWBM != nil {
			awbm = strategy.AWBM{
				C1: spec.AWBM.C1, C2: spec.AWBM.C2, C3: spec.AWBM.C3,
				A1: spec.AWBM.A1, A2: spec.AWBM.A2, A3: spec.AWBM.A3,
				BaseflowCoeff: spec.AWBM.BaseflowCoeff,
				SurfaceCoeff:  spec.AWBM.SurfaceCoeff,
			}
		}
		st, err := strategy.NewHydrology(snow, awbm, spec.Area)
		if err != nil {
			addErr(ve, err, field)
			return nil
		}
		return st

	default:
		ve.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown inflow kind %q, want timeseries or hydrology", spec.Kind),
			field+".kind")
		return nil
	}
}

// compileDemand строит модель водопотребления
func compileDemand(spec *DemandSpec, ve *apperror.ValidationErrors, field string) domain.DemandStrategy {
	var (
		st  domain.DemandStrategy
		err error
	)
	switch spec.Kind {
	case "municipal":
		st, err = strategy.NewMunicipal(spec.Population, spec.PerCapita)
	case "agriculture":
		st, err = strategy.NewAgriculture(spec.Area, spec.Kc)
	case "timeseries":
		st, err = strategy.NewTimeSeriesDemand(spec.Values)
	default:
		ve.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown demand kind %q, want municipal, agriculture or timeseries", spec.Kind),
			field+".kind")
		return nil
	}
	if err != nil {
		addErr(ve, err, field)
		return nil
	}
	return st
}

// compileLink строит звено сети. Цена звена в узел спроса по умолчанию
// кодирует его приоритет: priority * CostDemand
func compileLink(spec *LinkSpec, nw *domain.Network, ve *apperror.ValidationErrors, field string) *domain.Link {
	capacity := domain.Infinity
	if spec.Capacity != nil {
		capacity = *spec.Capacity
	}

	var cost float64
	switch {
	case spec.Cost != nil:
		cost = *spec.Cost
	default:
		if to, ok := nw.Node(spec.To); ok && to.Kind == domain.KindDemand {
			cost = to.Demand.Priority * domain.CostDemand
		}
	}

	l := domain.NewLink(spec.ID, spec.From, spec.To, capacity, cost)
	l.MinFlow = spec.MinFlow

	if spec.Hydraulic != nil {
		h := compileHydraulic(spec.Hydraulic, ve, field+".hydraulic")
		if h == nil {
			return nil
		}
		l.Hydraulic = h
	}

	if spec.Control != nil {
		c := compileControl(spec.Control, ve, field+".control")
		if c == nil {
			return nil
		}
		l.Control = c
	}

	return l
}

// compileHydraulic строит гидравлическую модель звена
func compileHydraulic(spec *HydraulicSpec, ve *apperror.ValidationErrors, field string) *domain.Hydraulic {
	h := &domain.Hydraulic{
		Coefficient: spec.Coefficient,
		CrestLength: spec.CrestLength,
		CrestLevel:  spec.CrestLevel,
		Capacity:    spec.Capacity,
	}
	switch spec.Kind {
	case "weir":
		h.Kind = domain.HydraulicWeir
	case "pipe":
		h.Kind = domain.HydraulicPipe
	default:
		ve.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown hydraulic kind %q, want weir or pipe", spec.Kind),
			field+".kind")
		return nil
	}
	return h
}

// compileControl строит управляющее правило звена
func compileControl(spec *ControlSpec, ve *apperror.ValidationErrors, field string) *domain.Control {
	c := &domain.Control{
		Fraction: spec.Fraction,
		Limit:    spec.Limit,
		Open:     spec.Open,
	}
	switch spec.Kind {
	case "fraction":
		c.Kind = domain.ControlFraction
	case "absolute":
		c.Kind = domain.ControlAbsolute
	case "switch":
		c.Kind = domain.ControlSwitch
	default:
		ve.AddErrorWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("unknown control kind %q, want fraction, absolute or switch", spec.Kind),
			field+".kind")
		return nil
	}
	return c
}

// resolve разворачивает относительный путь от каталога файла сценария
func (s *Scenario) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.dir == "" {
		return path
	}
	return filepath.Join(s.dir, path)
}

// addErr кладёт ошибку конструктора в накопитель, привязывая её к полю сценария
func addErr(ve *apperror.ValidationErrors, err error, field string) {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		if ae.Field == "" {
			ae.Field = field
		}
		ve.Add(ae)
		return
	}
	ve.Add(apperror.New(apperror.CodeInvalidArgument, err.Error()).WithField(field))
}

// nodeField возвращает путь узла для сообщений об ошибках
func nodeField(i int, id string) string {
	if id == "" {
		return fmt.Sprintf("nodes[%d]", i)
	}
	return "nodes." + id
}

// linkField возвращает путь звена для сообщений об ошибках
func linkField(i int, id string) string {
	if id == "" {
		return fmt.Sprintf("links[%d]", i)
	}
	return "links." + id
}
