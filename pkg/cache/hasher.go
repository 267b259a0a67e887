package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/jlillywh/hydrosim/pkg/domain"
	"github.com/jlillywh/hydrosim/pkg/solver"
)

// ProblemHash вычисляет хеш задачи распределения для использования как ключ кэша
func ProblemHash(p *solver.Problem) string {
	if p == nil || p.Network == nil {
		return ""
	}

	data := problemToCanonical(p)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// problemToCanonical создаёт детерминированное представление задачи: узлы и
// звенья сортируются по идентификатору, сутки горизонта идут по порядку
func problemToCanonical(p *solver.Problem) []byte {
	nodes := p.Network.Nodes()
	ids := make([]string, 0, len(nodes))
	byID := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
		byID[n.ID] = n
	}
	sort.Strings(ids)

	var result []byte

	// Узлы. Для водохранилищ в ключ входит всё, что влияет на развёртку:
	// объём, мёртвый и полный объёмы, применённое испарение
	for _, id := range ids {
		n := byID[id]
		if n.Kind == domain.KindStorage && n.Storage != nil {
			s := n.Storage
			result = append(result, fmt.Sprintf("s:%s:%.6f:%.6f:%.6f:%.6f;",
				id, s.Level, s.MinCapacity, s.MaxCapacity, s.EvaporationLoss)...)
			continue
		}
		result = append(result, fmt.Sprintf("n:%s:%d;", id, n.Kind)...)
	}

	// Звенья с границами воронки
	linkIDs := make([]string, 0, len(p.Bounds))
	for id := range p.Bounds {
		linkIDs = append(linkIDs, id)
	}
	sort.Strings(linkIDs)
	for _, id := range linkIDs {
		b := p.Bounds[id]
		var from, to string
		if l, ok := p.Network.Link(id); ok {
			from, to = l.From, l.To
		}
		result = append(result, fmt.Sprintf("l:%s:%s:%s:%.6f:%.6f:%.6f;",
			id, from, to, b.Min, b.Max, b.Cost)...)
	}

	// Сутки горизонта: порядок суток значим, ключи внутри суток сортируются
	for t, day := range p.Days {
		result = append(result, fmt.Sprintf("d:%d;", t)...)
		result = appendSortedValues(result, "g", day.Generation)
		result = appendSortedValues(result, "r", day.Requests)
	}

	return result
}

// appendSortedValues дописывает значения карты в каноническом порядке ключей
func appendSortedValues(dst []byte, tag string, values map[string]float64) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dst = append(dst, fmt.Sprintf("%s:%s:%.6f;", tag, k, values[k])...)
	}
	return dst
}

// BuildAllocationKey строит ключ кэша для результата распределения
func BuildAllocationKey(problemHash string, carryoverCost float64) string {
	return fmt.Sprintf("alloc:%.6f:%s", carryoverCost, problemHash)
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
