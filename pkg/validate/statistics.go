package validate

import "github.com/jlillywh/hydrosim/pkg/domain"

// NetworkStats сводные показатели сети для отчёта валидации
type NetworkStats struct {
	Nodes     int `json:"nodes"`
	Links     int `json:"links"`
	Sources   int `json:"sources"`
	Storages  int `json:"storages"`
	Demands   int `json:"demands"`
	Junctions int `json:"junctions"`

	TotalLinkCapacity    float64 `json:"total_link_capacity"`
	AvgLinkCapacity      float64 `json:"avg_link_capacity"`
	UnboundedLinks       int     `json:"unbounded_links"`
	TotalStorageCapacity float64 `json:"total_storage_capacity"`
	TotalDeadPool        float64 `json:"total_dead_pool"`
	TotalInitialStorage  float64 `json:"total_initial_storage"`

	Density    float64 `json:"density"`
	Components int     `json:"components"`
	Connected  bool    `json:"connected"`
}

// Statistics собирает сводку по составу, ёмкостям и связности сети
func Statistics(nw *domain.Network) *NetworkStats {
	if nw == nil {
		return nil
	}

	stats := &NetworkStats{}

	for _, n := range nw.Nodes() {
		if n.IsVirtual() {
			continue
		}
		stats.Nodes++
		switch n.Kind {
		case domain.KindSource:
			stats.Sources++
		case domain.KindStorage:
			stats.Storages++
			stats.TotalStorageCapacity += n.Storage.MaxCapacity
			stats.TotalDeadPool += n.Storage.MinCapacity
			stats.TotalInitialStorage += n.Storage.Level
		case domain.KindDemand:
			stats.Demands++
		case domain.KindJunction:
			stats.Junctions++
		}
	}

	bounded := 0
	for _, l := range nw.Links() {
		if l.IsVirtual() {
			continue
		}
		stats.Links++
		if l.PhysicalCapacity >= domain.Infinity {
			stats.UnboundedLinks++
			continue
		}
		bounded++
		stats.TotalLinkCapacity += l.PhysicalCapacity
	}
	if bounded > 0 {
		stats.AvgLinkCapacity = stats.TotalLinkCapacity / float64(bounded)
	}

	if stats.Nodes > 1 {
		stats.Density = float64(stats.Links) / float64(stats.Nodes*(stats.Nodes-1))
	}

	stats.Components = componentCount(nw)
	stats.Connected = stats.Components <= 1

	return stats
}
