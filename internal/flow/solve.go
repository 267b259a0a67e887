package flow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// ErrCanceled возвращается, когда решение прервано контекстом или таймаутом
var ErrCanceled = errors.New("flow: computation canceled")

// Options параметры решателя
type Options struct {
	// Epsilon допуск для сравнения вещественных чисел
	Epsilon float64

	// MaxIterations предел числа увеличивающих путей (0 — без ограничения)
	MaxIterations int

	// Timeout предельное время решения (0 — только внешний контекст)
	Timeout time.Duration
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() *Options {
	return &Options{
		Epsilon:       Epsilon,
		MaxIterations: 0,
		Timeout:       30 * time.Second,
	}
}

// Result результат решения задачи о потоке минимальной стоимости
type Result struct {
	// Flows поток по каждой дуге в порядке добавления, включая нижние границы
	Flows []float64

	// Cost суммарная стоимость потока
	Cost float64

	// Iterations число найденных увеличивающих путей
	Iterations int

	// Duration затраченное время
	Duration time.Duration
}

// Solve находит поток минимальной стоимости, удовлетворяющий балансам узлов
// и границам всех дуг. Метод последовательных кратчайших путей с потенциалами:
// нижние границы снимаются заменой переменных, остаточные балансы
// разводятся через виртуальные источник и сток, затем пути ищутся
// алгоритмом Беллмана-Форда по приведённым стоимостям.
func Solve(ctx context.Context, n *Network, options *Options) (*Result, error) {
	start := time.Now()

	if options == nil {
		options = DefaultOptions()
	}
	eps := options.Epsilon
	if eps <= 0 {
		eps = Epsilon
	}

	if n == nil {
		return nil, apperror.New(apperror.CodeNilInput, "flow network is nil")
	}
	nodes := n.NodeCount()
	if nodes == 0 {
		return nil, apperror.ErrEmptyNetwork
	}

	// Допуск масштабируется суммарной массой задачи
	scale := 0.0
	for _, b := range n.supply {
		scale += math.Abs(b)
	}
	tol := eps * math.Max(1, scale)

	if total := n.TotalSupply(); math.Abs(total) > tol {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"node balances sum to %g, expected 0", total)
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	// Замена переменных f = lower + f' снимает нижние границы;
	// снятая масса оседает в остаточных балансах узлов
	source := nodes
	sink := nodes + 1
	g := newResidualGraph(nodes+2, n.ArcCount()+nodes)

	arcIdx := make([]int, n.ArcCount())
	excess := make([]float64, nodes)
	copy(excess, n.supply)
	for i, a := range n.arcs {
		span := a.Upper - a.Lower
		if span < 0 {
			span = 0
		}
		arcIdx[i] = g.addArc(a.From, a.To, span, a.Cost)
		if a.Lower > 0 {
			excess[a.From] -= a.Lower
			excess[a.To] += a.Lower
		}
	}

	// Узлы с положительным остатком питаются от виртуального источника,
	// с отрицательным — сливаются в виртуальный сток
	supplyArc := make([]int, nodes)
	required := 0.0
	for v := 0; v < nodes; v++ {
		supplyArc[v] = -1
		switch {
		case excess[v] > eps:
			supplyArc[v] = g.addArc(source, v, excess[v], 0)
			required += excess[v]
		case excess[v] < -eps:
			g.addArc(v, sink, -excess[v], 0)
		}
	}

	// Начальные потенциалы из полного прогона Беллмана-Форда
	potentials := make([]float64, g.nodeCount())
	init := bellmanFord(ctx, g, source)
	if init.canceled {
		return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	}
	if init.hasNegativeCycle {
		return nil, apperror.ErrNegativeCycle
	}
	for v, d := range init.dist {
		if d < Infinity {
			potentials[v] = d
		}
	}

	totalFlow := 0.0
	iterations := 0
	for totalFlow < required-tol {
		if options.MaxIterations > 0 && iterations >= options.MaxIterations {
			return nil, apperror.Newf(apperror.CodeIterationLimit,
				"no optimum after %d augmenting paths", iterations)
		}

		bf := bellmanFordWithPotentials(ctx, g, source, potentials)
		if bf.canceled {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		}
		if bf.dist[sink] >= Infinity-eps {
			break
		}

		for v := range potentials {
			if bf.dist[v] < Infinity {
				potentials[v] += bf.dist[v]
			}
		}

		path := reconstructArcPath(g, bf.parentArc, source, sink)
		if len(path) == 0 {
			break
		}

		pathFlow := required - totalFlow
		for _, idx := range path {
			pathFlow = min(pathFlow, g.arcs[idx].residual)
		}
		if pathFlow <= eps {
			break
		}

		for _, idx := range path {
			g.push(idx, pathFlow)
		}
		totalFlow += pathFlow
		iterations++
	}

	if totalFlow < required-tol {
		return nil, diagnoseShortfall(n, g, excess, supplyArc, required-totalFlow, eps)
	}

	// Чтение потока: нижняя граница плюс поток остаточной задачи
	flows := make([]float64, n.ArcCount())
	totalCost := 0.0
	for i, a := range n.arcs {
		flows[i] = a.Lower + g.flowOn(arcIdx[i])
		totalCost += flows[i] * a.Cost
	}

	if err := verifySolution(n, flows, tol); err != nil {
		return nil, err
	}

	return &Result{
		Flows:      flows,
		Cost:       totalCost,
		Iterations: iterations,
		Duration:   time.Since(start),
	}, nil
}

// reconstructArcPath восстанавливает увеличивающий путь по дугам-родителям
func reconstructArcPath(g *residualGraph, parentArc []int, source, sink int) []int {
	if parentArc[sink] < 0 {
		return nil
	}
	var path []int
	for v := sink; v != source; {
		idx := parentArc[v]
		if idx < 0 || len(path) > len(g.arcs) {
			return nil
		}
		path = append(path, idx)
		// хвост дуги idx — голова её парной дуги
		v = g.arcs[idx^1].to
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// diagnoseShortfall различает структурный разрыв сети и нехватку
// пропускной способности, называя первый невыполнимый узел
func diagnoseShortfall(n *Network, g *residualGraph, excess []float64, supplyArc []int, shortfall, eps float64) error {
	// Первый узел с ненасыщенной питающей дугой — виновник диагноза
	node := -1
	unmet := 0.0
	for v := 0; v < n.NodeCount(); v++ {
		if supplyArc[v] < 0 {
			continue
		}
		if r := g.arcs[supplyArc[v]].residual; r > eps {
			node = v
			unmet = r
			break
		}
	}
	if node < 0 {
		return apperror.NewCritical(apperror.CodeInternal,
			fmt.Sprintf("allocation short by %g units with all supplies routed", shortfall))
	}

	if !reachesConsumer(n, excess, node, eps) {
		return apperror.Newf(apperror.CodeDegenerate,
			"supply at node %q has no route to any outlet (%g units stranded)",
			n.Name(node), unmet).
			WithField(n.Name(node)).
			WithDetails("unmet", unmet).
			WithDetails("total_shortfall", shortfall)
	}
	return apperror.Newf(apperror.CodeInfeasible,
		"insufficient capacity to route %g units from node %q",
		unmet, n.Name(node)).
		WithField(n.Name(node)).
		WithDetails("unmet", unmet).
		WithDetails("total_shortfall", shortfall)
}

// reachesConsumer проверяет, достижим ли хотя бы один узел-приёмник
// из указанного узла по исходным дугам без учёта границ
func reachesConsumer(n *Network, excess []float64, from int, eps float64) bool {
	out := make([][]int, n.NodeCount())
	for _, a := range n.arcs {
		out[a.From] = append(out[a.From], a.To)
	}

	visited := make([]bool, n.NodeCount())
	queue := []int{from}
	visited[from] = true
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if excess[v] < -eps {
			return true
		}
		for _, w := range out[v] {
			if !visited[w] {
				visited[w] = true
				queue = append(queue, w)
			}
		}
	}
	return false
}

// verifySolution перепроверяет баланс массы в узлах и границы дуг
func verifySolution(n *Network, flows []float64, tol float64) error {
	balance := make([]float64, n.NodeCount())
	for i, a := range n.arcs {
		f := flows[i]
		if f < a.Lower-tol || f > a.Upper+tol {
			return apperror.NewCritical(apperror.CodeBoundViolation,
				fmt.Sprintf("flow %g on arc %q is outside [%g, %g]",
					f, a.Tag, a.Lower, a.Upper)).WithField(a.Tag)
		}
		balance[a.From] += f
		balance[a.To] -= f
	}
	for v := 0; v < n.NodeCount(); v++ {
		if diff := balance[v] - n.supply[v]; math.Abs(diff) > tol {
			return apperror.NewCritical(apperror.CodeMassBalance,
				fmt.Sprintf("node %q violates conservation by %g units",
					n.Name(v), diff)).WithField(n.Name(v))
		}
	}
	return nil
}
