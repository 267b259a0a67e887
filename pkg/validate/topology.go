package validate

import (
	"math"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// NegativeCycles ищет циклы с отрицательной суммарной стоимостью методом
// Беллмана-Форда. Нулевые стартовые расстояния находят цикл в любой части
// сети, не только достижимой из источников
func NegativeCycles(nw *domain.Network) *apperror.ValidationErrors {
	result := apperror.NewValidationErrors()

	links := make([]*domain.Link, 0, nw.LinkCount())
	for _, l := range nw.Links() {
		if !l.IsVirtual() {
			links = append(links, l)
		}
	}

	dist := make(map[string]float64, nw.NodeCount())
	for i := 1; i < nw.NodeCount(); i++ {
		changed := false
		for _, l := range links {
			if d := dist[l.From] + l.Cost; d < dist[l.To] {
				dist[l.To] = d
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for _, l := range links {
		if dist[l.From]+l.Cost < dist[l.To]-domain.Epsilon {
			result.Add(apperror.Newf(apperror.CodeNegativeCycle,
				"negative-cost cycle through link %q (%s -> %s)",
				l.ID, l.From, l.To).WithField(l.ID))
			return result
		}
	}

	return result
}

// CostHierarchy сверяет стоимости доставки с политикой распределения:
// доставка должна перевешивать перенос, приоритеты — упорядочивать доставки
func CostHierarchy(nw *domain.Network) *apperror.ValidationErrors {
	result := apperror.NewValidationErrors()

	type delivery struct {
		node *domain.Node
		cost float64
	}
	cheapest := make([]delivery, 0, len(nw.Demands()))

	for _, n := range nw.Demands() {
		if n.IsVirtual() {
			continue
		}
		minCost := math.Inf(1)
		for _, l := range nw.InflowLinks(n.ID) {
			if l.IsVirtual() {
				continue
			}
			if l.Cost >= domain.CostStorage {
				result.Add(apperror.NewWarningf(apperror.CodeCostHierarchy,
					"link %q delivers to %q at cost %g, not below carryover cost %g; storage outranks this delivery",
					l.ID, n.ID, l.Cost, domain.CostStorage).WithField(l.ID))
			}
			minCost = min(minCost, l.Cost)
		}
		if !math.IsInf(minCost, 1) {
			cheapest = append(cheapest, delivery{node: n, cost: minCost})
		}
	}

	// Инверсия приоритетов: более важный потребитель обслуживается дороже,
	// чем менее важный, и решатель предпочтёт второго
	for _, a := range cheapest {
		for _, b := range cheapest {
			if a.node.Demand.Priority > b.node.Demand.Priority && a.cost > b.cost+domain.Epsilon {
				result.Add(apperror.NewWarningf(apperror.CodeCostHierarchy,
					"demand %q (priority %g) is served at cost %g, above lower-priority %q (priority %g) at %g",
					a.node.ID, a.node.Demand.Priority, a.cost,
					b.node.ID, b.node.Demand.Priority, b.cost).WithField(a.node.ID))
				break
			}
		}
	}

	return result
}
