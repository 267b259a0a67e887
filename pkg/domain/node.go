package domain

import "github.com/jlillywh/hydrosim/pkg/apperror"

// NodeKind вариант узла сети
type NodeKind int

const (
	KindUnspecified NodeKind = iota
	KindStorage
	KindJunction
	KindSource
	KindDemand
	// KindVirtualSink служебный вариант: существует только внутри решателя,
	// в постоянную топологию не попадает
	KindVirtualSink
)

// String возвращает строковое представление варианта узла
func (k NodeKind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindJunction:
		return "junction"
	case KindSource:
		return "source"
	case KindDemand:
		return "demand"
	case KindVirtualSink:
		return "virtual_sink"
	default:
		return "unspecified"
	}
}

// StorageState состояние водохранилища
type StorageState struct {
	Level           float64   // текущий объём, м³
	MinCapacity     float64   // мёртвый объём, м³
	MaxCapacity     float64   // полный объём, м³
	EAV             *EAVTable // батиметрия; nil — испарение и напор не считаются
	EvaporationLoss float64   // потери за текущие сутки, м³ (вычисляется на шаге узла)
	DeadPoolMargin  float64   // запас до мёртвого объёма для предупреждения, м³
}

// Head возвращает отметку уровня при текущем объёме; без таблицы 0
func (s *StorageState) Head() (float64, error) {
	if s.EAV == nil {
		return 0, nil
	}
	return s.EAV.ElevationAt(s.Level)
}

// SurfaceArea возвращает площадь зеркала при текущем объёме; без таблицы 0
func (s *StorageState) SurfaceArea() (float64, error) {
	if s.EAV == nil {
		return 0, nil
	}
	return s.EAV.AreaAt(s.Level)
}

// SourceState состояние источника притока
type SourceState struct {
	GeneratedInflow float64 // приток за текущие сутки, м³
	Strategy        InflowStrategy
}

// DemandState состояние узла водопотребления
type DemandState struct {
	RequestedAmount float64 // запрошено за текущие сутки, м³
	DeliveredAmount float64 // поставлено по итогам решения, м³
	Priority        float64 // >= 1; масштабирует вознаграждение за поставку
	Strategy        DemandStrategy
}

// Deficit возвращает непокрытый объём запроса
func (d *DemandState) Deficit() float64 {
	return max(0, d.RequestedAmount-d.DeliveredAmount)
}

// Node узел сети. Вариант определяется Kind; заполнен ровно один payload
// соответствующего варианта. Inflows/Outflows — обратные ссылки на звенья,
// владеет ими Network.
type Node struct {
	ID       string
	Kind     NodeKind
	Inflows  []string
	Outflows []string
	Storage  *StorageState
	Source   *SourceState
	Demand   *DemandState
}

// NewStorage создаёт узел-водохранилище
func NewStorage(id string, level, minCap, maxCap float64, eav *EAVTable) *Node {
	return &Node{
		ID:   id,
		Kind: KindStorage,
		Storage: &StorageState{
			Level:       level,
			MinCapacity: minCap,
			MaxCapacity: maxCap,
			EAV:         eav,
		},
	}
}

// NewJunction создаёт узел-развилку без собственного состояния
func NewJunction(id string) *Node {
	return &Node{ID: id, Kind: KindJunction}
}

// NewSource создаёт узел-источник с заданной стратегией притока
func NewSource(id string, strategy InflowStrategy) *Node {
	return &Node{
		ID:     id,
		Kind:   KindSource,
		Source: &SourceState{Strategy: strategy},
	}
}

// NewDemand создаёт узел водопотребления
func NewDemand(id string, priority float64, strategy DemandStrategy) *Node {
	if priority <= 0 {
		priority = 1
	}
	return &Node{
		ID:     id,
		Kind:   KindDemand,
		Demand: &DemandState{Priority: priority, Strategy: strategy},
	}
}

// Step выполняет вертикальную физику узла за сутки. Сетевые потоки здесь
// не затрагиваются: уровень водохранилища меняет только фаза применения решения.
func (n *Node) Step(d Drivers) error {
	switch n.Kind {
	case KindStorage:
		area, err := n.Storage.SurfaceArea()
		if err != nil {
			return apperror.Wrap(err, apperror.Code(err), "surface area lookup failed").WithField(n.ID)
		}
		// мм/сут × м² / 1000 → м³/сут
		n.Storage.EvaporationLoss = area * d.ReferenceET0 / 1000.0
		return nil

	case KindSource:
		if n.Source.Strategy == nil {
			return apperror.NewWithField(apperror.CodeNilInput, "source has no inflow strategy", n.ID)
		}
		v, err := n.Source.Strategy.Generate(d)
		if err != nil {
			return apperror.Wrap(err, apperror.Code(err), "inflow generation failed").WithField(n.ID)
		}
		n.Source.GeneratedInflow = v
		return nil

	case KindDemand:
		if n.Demand.Strategy == nil {
			return apperror.NewWithField(apperror.CodeNilInput, "demand has no model", n.ID)
		}
		v, err := n.Demand.Strategy.Request(d)
		if err != nil {
			return apperror.Wrap(err, apperror.Code(err), "demand request failed").WithField(n.ID)
		}
		n.Demand.RequestedAmount = v
		n.Demand.DeliveredAmount = 0
		return nil

	case KindJunction:
		return nil

	default:
		return apperror.NewWithField(apperror.CodeInvalidNodeKind, "node kind cannot step", n.ID)
	}
}

// IsVirtual сообщает, является ли узел служебным для решателя
func (n *Node) IsVirtual() bool {
	return n.Kind == KindVirtualSink || IsVirtualID(n.ID)
}
