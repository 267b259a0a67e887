package solver

import (
	"fmt"

	"github.com/jlillywh/hydrosim/internal/flow"
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Имя общего стока и суффикс дуг поставки внутри арены решателя
const (
	sinkNodeName   = "_sink"
	deliverySuffix = "_delivery"
)

// assembly связывает арену потоковой задачи с исходной сетью: помнит, какая
// дуга арены отвечает какому звену, переносу, сбросу и поставке первых суток
type assembly struct {
	arena   *flow.Network
	horizon int

	linkArcs     map[string]int
	carryArcs    map[string]int
	spillArcs    map[string]int
	deliveryArcs map[string]int

	evaporation map[string]float64
	warnings    []*apperror.Error
}

// newAssembly строит временную развёртку задачи: H слоёв сети, сцепленных
// переносами водохранилищ, и общий сток, принимающий поставки, сбросы и
// итоговые переносы последнего слоя
func newAssembly(p *Problem, carryoverCost float64) (*assembly, error) {
	horizon := len(p.Days)
	a := &assembly{
		arena:        flow.NewNetwork(),
		horizon:      horizon,
		linkArcs:     make(map[string]int, p.Network.LinkCount()),
		carryArcs:    make(map[string]int),
		spillArcs:    make(map[string]int),
		deliveryArcs: make(map[string]int),
		evaporation:  make(map[string]float64),
	}

	sink := a.arena.AddNode(sinkNodeName)

	// Узлы слоями. Приток источников входит каждые сутки, масса водохранилищ
	// существует только в первом слое: дальше она движется по дугам переноса
	totalMass := 0.0
	layers := make([]map[string]int, horizon)
	carryFloor := make(map[string]float64)
	for t := 0; t < horizon; t++ {
		layers[t] = make(map[string]int, p.Network.NodeCount())
		for _, n := range p.Network.Nodes() {
			idx := a.arena.AddNode(layerName(n.ID, t))
			if idx != a.arena.NodeCount()-1 {
				return nil, apperror.Newf(apperror.CodeDuplicateNode,
					"node id %q collides with a solver layer name", n.ID).WithField(n.ID)
			}
			layers[t][n.ID] = idx

			switch n.Kind {
			case domain.KindSource:
				gen, ok := p.Days[t].Generation[n.ID]
				if !ok {
					return nil, apperror.Newf(apperror.CodeInvalidArgument,
						"no inflow value for source %q on day %d", n.ID, t+1).WithField(n.ID)
				}
				if gen < 0 {
					return nil, apperror.Newf(apperror.CodeInvalidArgument,
						"negative inflow %g for source %q on day %d", gen, n.ID, t+1).WithField(n.ID)
				}
				a.arena.SetSupply(idx, gen)
				totalMass += gen

			case domain.KindStorage:
				if n.Storage == nil {
					return nil, apperror.NewWithField(apperror.CodeInvalidNodeKind,
						"storage node has no storage state", n.ID)
				}
				if t > 0 {
					continue
				}
				available := a.storageAvailable(n)
				carryFloor[n.ID] = a.storageFloor(n, available)
				a.arena.SetSupply(idx, available)
				totalMass += available
			}
		}
	}

	// Дуги слоями, порядок фиксирован: звенья, переносы со сбросами, поставки
	for t := 0; t < horizon; t++ {
		for _, l := range p.Network.Links() {
			b, ok := p.Bounds[l.ID]
			if !ok {
				return nil, apperror.Newf(apperror.CodeInvalidArgument,
					"no bounds computed for link %q", l.ID).WithField(l.ID)
			}
			from, ok := layers[t][l.From]
			if !ok {
				return nil, apperror.Newf(apperror.CodeDanglingLink,
					"link source %q does not exist", l.From).WithField(l.ID)
			}
			to, ok := layers[t][l.To]
			if !ok {
				return nil, apperror.Newf(apperror.CodeDanglingLink,
					"link target %q does not exist", l.To).WithField(l.ID)
			}
			arc, err := a.arena.AddArc(from, to, b.Min, b.Max, b.Cost, layerName(l.ID, t))
			if err != nil {
				return nil, err
			}
			if t == 0 {
				a.linkArcs[l.ID] = arc
			}
		}

		for _, n := range p.Network.Storages() {
			// Перенос последнего слоя завершается в виртуальном стоке,
			// промежуточный приходит в то же водохранилище суток t+1
			var target int
			if t+1 < horizon {
				target = layers[t+1][n.ID]
			} else {
				futureID := n.ID + domain.VirtualSinkSuffix
				future := a.arena.AddNode(futureID)
				if future != a.arena.NodeCount()-1 {
					return nil, apperror.Newf(apperror.CodeDuplicateNode,
						"virtual sink id %q is already taken", futureID).WithField(n.ID)
				}
				if _, err := a.arena.AddArc(future, sink, 0, flow.Infinity, 0, futureID); err != nil {
					return nil, err
				}
				target = future
			}

			carry, err := a.arena.AddArc(layers[t][n.ID], target,
				carryFloor[n.ID], n.Storage.MaxCapacity, carryoverCost,
				layerName(n.ID+domain.CarryoverSuffix, t))
			if err != nil {
				return nil, err
			}
			if t == 0 {
				a.carryArcs[n.ID] = carry
			}

			spill, err := a.arena.AddArc(layers[t][n.ID], sink, 0, flow.Infinity,
				domain.CostSpill, layerName(n.ID+domain.SpillSuffix, t))
			if err != nil {
				return nil, err
			}
			if t == 0 {
				a.spillArcs[n.ID] = spill
			}
		}

		for _, n := range p.Network.Demands() {
			req, ok := p.Days[t].Requests[n.ID]
			if !ok {
				return nil, apperror.Newf(apperror.CodeInvalidArgument,
					"no request value for demand %q on day %d", n.ID, t+1).WithField(n.ID)
			}
			if req < 0 {
				return nil, apperror.Newf(apperror.CodeInvalidArgument,
					"negative request %g for demand %q on day %d", req, n.ID, t+1).WithField(n.ID)
			}
			arc, err := a.arena.AddArc(layers[t][n.ID], sink, 0, req, 0,
				layerName(n.ID+deliverySuffix, t))
			if err != nil {
				return nil, err
			}
			if t == 0 {
				a.deliveryArcs[n.ID] = arc
			}
		}
	}

	a.arena.SetSupply(sink, -totalMass)
	return a, nil
}

// storageAvailable вычисляет доступную массу первых суток: объём минус
// испарение; испарение выше хранимого объёма ограничивается с предупреждением
func (a *assembly) storageAvailable(n *domain.Node) float64 {
	s := n.Storage
	loss := s.EvaporationLoss
	if loss > s.Level {
		a.warn(apperror.NewWarningf(apperror.CodeEvaporationClamped,
			"evaporation %g exceeds stored volume %g at %q, loss clamped",
			loss, s.Level, n.ID).WithField(n.ID))
		loss = s.Level
	}
	a.evaporation[n.ID] = loss
	return max(0, s.Level-loss)
}

// storageFloor возвращает нижнюю границу переноса: мёртвый объём, ослабленный
// до доступной массы, когда водохранилище уже осушено ниже него
func (a *assembly) storageFloor(n *domain.Node, available float64) float64 {
	s := n.Storage
	if available >= s.MinCapacity {
		return s.MinCapacity
	}
	a.warn(apperror.NewWarningf(apperror.CodeDeadPoolNear,
		"storage %q holds %g, below dead pool %g; carryover floor relaxed",
		n.ID, available, s.MinCapacity).WithField(n.ID))
	return available
}

func (a *assembly) warn(w *apperror.Error) {
	a.warnings = append(a.warnings, w)
}

// extract читает решение первых суток из потокового результата.
// Виртуальные дуги в карту потоков не попадают
func (a *assembly) extract(fres *flow.Result) *Result {
	res := &Result{
		Flows:       make(map[string]float64, len(a.linkArcs)),
		Levels:      make(map[string]float64, len(a.carryArcs)),
		Delivered:   make(map[string]float64, len(a.deliveryArcs)),
		Spills:      make(map[string]float64, len(a.spillArcs)),
		Evaporation: a.evaporation,
		Warnings:    a.warnings,
		Horizon:     a.horizon,
		Nodes:       a.arena.NodeCount(),
		Arcs:        a.arena.ArcCount(),
		Cost:        fres.Cost,
		Iterations:  fres.Iterations,
	}
	for id, arc := range a.linkArcs {
		res.Flows[id] = fres.Flows[arc]
	}
	for id, arc := range a.carryArcs {
		res.Levels[id] = fres.Flows[arc]
	}
	for id, arc := range a.spillArcs {
		res.Spills[id] = fres.Flows[arc]
	}
	for id, arc := range a.deliveryArcs {
		res.Delivered[id] = fres.Flows[arc]
	}
	return res
}

// layerName возвращает имя узла или метку дуги в слое t развёртки:
// первый слой сохраняет исходные идентификаторы
func layerName(id string, t int) string {
	if t == 0 {
		return id
	}
	return fmt.Sprintf("%s_t%d", id, t)
}
