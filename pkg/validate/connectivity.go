package validate

import (
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Reachability проверяет, что у каждого потребителя есть маршрут от
// источника или водохранилища, а сгенерированному притоку есть куда уходить
func Reachability(nw *domain.Network) *apperror.ValidationErrors {
	result := apperror.NewValidationErrors()

	adj := forwardAdjacency(nw)
	reached := make(map[string]bool, nw.NodeCount())
	queue := make([]string, 0, nw.NodeCount())

	for _, n := range nw.Sources() {
		if n.IsVirtual() {
			continue
		}
		reached[n.ID] = true
		queue = append(queue, n.ID)
	}
	for _, n := range nw.Storages() {
		if n.IsVirtual() {
			continue
		}
		reached[n.ID] = true
		queue = append(queue, n.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj[id] {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, n := range nw.Demands() {
		if n.IsVirtual() {
			continue
		}
		if !reached[n.ID] {
			result.Add(apperror.Newf(apperror.CodeUnreachableDemand,
				"no route from any source or storage reaches demand %q", n.ID).WithField(n.ID))
		}
	}

	// Приток обязан куда-то уходить: источник-тупик делает любой
	// ненулевой день неразрешимым
	for _, n := range nw.Sources() {
		if n.IsVirtual() {
			continue
		}
		if len(n.Outflows) == 0 {
			result.Add(apperror.Newf(apperror.CodeIsolatedNode,
				"source %q has no outgoing links, generated inflow cannot route", n.ID).WithField(n.ID))
		}
	}

	for _, n := range nw.Storages() {
		if n.IsVirtual() {
			continue
		}
		if len(n.Outflows) == 0 {
			result.Add(apperror.NewWarningf(apperror.CodeIsolatedNode,
				"storage %q has no outgoing links, water leaves only by spill and evaporation", n.ID).WithField(n.ID))
		}
	}

	return result
}

// Components предупреждает о сети, распавшейся на несвязные части
func Components(nw *domain.Network) *apperror.ValidationErrors {
	result := apperror.NewValidationErrors()
	if n := componentCount(nw); n > 1 {
		result.AddWarningf(apperror.CodeDisconnected,
			"network splits into %d disconnected parts", n)
	}
	return result
}

// componentCount считает компоненты связности без учёта направления звеньев
func componentCount(nw *domain.Network) int {
	adj := make(map[string][]string, nw.NodeCount())
	for _, l := range nw.Links() {
		if l.IsVirtual() {
			continue
		}
		adj[l.From] = append(adj[l.From], l.To)
		adj[l.To] = append(adj[l.To], l.From)
	}

	visited := make(map[string]bool, nw.NodeCount())
	count := 0
	for _, n := range nw.Nodes() {
		if n.IsVirtual() || visited[n.ID] {
			continue
		}
		count++
		queue := []string{n.ID}
		visited[n.ID] = true
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			for _, next := range adj[id] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return count
}

func forwardAdjacency(nw *domain.Network) map[string][]string {
	adj := make(map[string][]string, nw.NodeCount())
	for _, l := range nw.Links() {
		if l.IsVirtual() {
			continue
		}
		adj[l.From] = append(adj[l.From], l.To)
	}
	return adj
}
