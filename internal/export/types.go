package export

import (
	"sort"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// deliveryRow итоги поставок по одному потребителю
type deliveryRow struct {
	ID          string
	Requested   float64
	Delivered   float64
	Deficit     float64
	Reliability float64
	DeficitDays int
}

// deliveryRows собирает потребителей из сводки в отсортированном порядке
func deliveryRows(s *engine.Summary) []deliveryRow {
	if s == nil {
		return nil
	}
	rows := make([]deliveryRow, 0, len(s.TotalRequested))
	for _, id := range sortedKeys(s.TotalRequested) {
		rows = append(rows, deliveryRow{
			ID:          id,
			Requested:   s.TotalRequested[id],
			Delivered:   s.TotalDelivered[id],
			Deficit:     s.TotalDeficit[id],
			Reliability: s.Reliability[id],
			DeficitDays: s.DeficitDays[id],
		})
	}
	return rows
}

// storageRow огибающая уровней одного водохранилища
type storageRow struct {
	ID    string
	Min   float64
	Max   float64
	Final float64
}

// storageRows собирает водохранилища из сводки в отсортированном порядке
func storageRows(s *engine.Summary) []storageRow {
	if s == nil {
		return nil
	}
	rows := make([]storageRow, 0, len(s.MinLevel))
	for _, id := range sortedKeys(s.MinLevel) {
		rows = append(rows, storageRow{
			ID:    id,
			Min:   s.MinLevel[id],
			Max:   s.MaxLevel[id],
			Final: s.FinalLevel[id],
		})
	}
	return rows
}

// balanceRow приток и потери по одному узлу
type balanceRow struct {
	ID          string
	Inflow      float64
	Spill       float64
	Evaporation float64
}

// balanceRows собирает водный баланс из сводки в отсортированном порядке
func balanceRows(s *engine.Summary) []balanceRow {
	if s == nil {
		return nil
	}
	set := make(map[string]bool)
	for id := range s.TotalInflow {
		set[id] = true
	}
	for id := range s.TotalSpill {
		set[id] = true
	}
	for id := range s.TotalEvaporation {
		set[id] = true
	}

	rows := make([]balanceRow, 0, len(set))
	for _, id := range sortedSet(set) {
		rows = append(rows, balanceRow{
			ID:          id,
			Inflow:      s.TotalInflow[id],
			Spill:       s.TotalSpill[id],
			Evaporation: s.TotalEvaporation[id],
		})
	}
	return rows
}

// flowKeys объединяет идентификаторы рёбер по всем записям
func flowKeys(records []*engine.Record) []string {
	set := make(map[string]bool)
	for _, rec := range records {
		for id := range rec.Flows {
			set[id] = true
		}
	}
	return sortedSet(set)
}

// levelKeys объединяет идентификаторы водохранилищ по всем записям
func levelKeys(records []*engine.Record) []string {
	set := make(map[string]bool)
	for _, rec := range records {
		for id := range rec.Levels {
			set[id] = true
		}
	}
	return sortedSet(set)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
