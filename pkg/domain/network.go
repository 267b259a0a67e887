package domain

import "github.com/jlillywh/hydrosim/pkg/apperror"

// Network топологическая модель: владеет узлами и звеньями, поддерживает
// обратные ссылки узел↔звено. Порядок вставки сохраняется, чтобы обходы
// были детерминированными. Модель изменяется только движком симуляции
// между шагами, поэтому синхронизация не нужна.
type Network struct {
	Name string

	nodes     map[string]*Node
	links     map[string]*Link
	nodeOrder []string
	linkOrder []string
}

// NewNetwork создаёт пустую сеть
func NewNetwork(name string) *Network {
	return &Network{
		Name:  name,
		nodes: make(map[string]*Node),
		links: make(map[string]*Link),
	}
}

// AddNode регистрирует узел. Дубликат идентификатора — ошибка
func (nw *Network) AddNode(n *Node) error {
	if n == nil {
		return apperror.New(apperror.CodeNilInput, "node is nil")
	}
	if n.ID == "" {
		return apperror.New(apperror.CodeInvalidArgument, "node id is empty")
	}
	if _, exists := nw.nodes[n.ID]; exists {
		return apperror.NewWithField(apperror.CodeDuplicateNode, "node already registered", n.ID)
	}
	nw.nodes[n.ID] = n
	nw.nodeOrder = append(nw.nodeOrder, n.ID)
	return nil
}

// AddLink регистрирует звено и добавляет обратные ссылки на оба конца.
// Отсутствующий конец здесь не ошибка: её фиксирует Validate.
func (nw *Network) AddLink(l *Link) error {
	if l == nil {
		return apperror.New(apperror.CodeNilInput, "link is nil")
	}
	if l.ID == "" {
		return apperror.New(apperror.CodeInvalidArgument, "link id is empty")
	}
	if _, exists := nw.links[l.ID]; exists {
		return apperror.NewWithField(apperror.CodeDuplicateLink, "link already registered", l.ID)
	}
	nw.links[l.ID] = l
	nw.linkOrder = append(nw.linkOrder, l.ID)

	if from, ok := nw.nodes[l.From]; ok {
		from.Outflows = append(from.Outflows, l.ID)
	}
	if to, ok := nw.nodes[l.To]; ok {
		to.Inflows = append(to.Inflows, l.ID)
	}
	return nil
}

// Node возвращает узел по идентификатору
func (nw *Network) Node(id string) (*Node, bool) {
	n, ok := nw.nodes[id]
	return n, ok
}

// Link возвращает звено по идентификатору
func (nw *Network) Link(id string) (*Link, bool) {
	l, ok := nw.links[id]
	return l, ok
}

// Nodes возвращает узлы в порядке вставки
func (nw *Network) Nodes() []*Node {
	result := make([]*Node, 0, len(nw.nodeOrder))
	for _, id := range nw.nodeOrder {
		result = append(result, nw.nodes[id])
	}
	return result
}

// Links возвращает звенья в порядке вставки
func (nw *Network) Links() []*Link {
	result := make([]*Link, 0, len(nw.linkOrder))
	for _, id := range nw.linkOrder {
		result = append(result, nw.links[id])
	}
	return result
}

// NodeCount возвращает количество узлов
func (nw *Network) NodeCount() int {
	return len(nw.nodes)
}

// LinkCount возвращает количество звеньев
func (nw *Network) LinkCount() int {
	return len(nw.links)
}

// NodesByKind возвращает узлы заданного варианта в порядке вставки
func (nw *Network) NodesByKind(kind NodeKind) []*Node {
	var result []*Node
	for _, id := range nw.nodeOrder {
		if n := nw.nodes[id]; n.Kind == kind {
			result = append(result, n)
		}
	}
	return result
}

// Storages возвращает узлы-водохранилища
func (nw *Network) Storages() []*Node {
	return nw.NodesByKind(KindStorage)
}

// Sources возвращает узлы-источники
func (nw *Network) Sources() []*Node {
	return nw.NodesByKind(KindSource)
}

// Demands возвращает узлы водопотребления
func (nw *Network) Demands() []*Node {
	return nw.NodesByKind(KindDemand)
}

// InflowLinks возвращает входящие звенья узла
func (nw *Network) InflowLinks(nodeID string) []*Link {
	n, ok := nw.nodes[nodeID]
	if !ok {
		return nil
	}
	result := make([]*Link, 0, len(n.Inflows))
	for _, id := range n.Inflows {
		if l, ok := nw.links[id]; ok {
			result = append(result, l)
		}
	}
	return result
}

// OutflowLinks возвращает исходящие звенья узла
func (nw *Network) OutflowLinks(nodeID string) []*Link {
	n, ok := nw.nodes[nodeID]
	if !ok {
		return nil
	}
	result := make([]*Link, 0, len(n.Outflows))
	for _, id := range n.Outflows {
		if l, ok := nw.links[id]; ok {
			result = append(result, l)
		}
	}
	return result
}

// LinkBounds вычисляет воронку ограничений звена при текущем состоянии
// узла-истока. Напор есть только у водохранилищ, для остальных узлов 0.
func (nw *Network) LinkBounds(l *Link) (Bounds, error) {
	head := 0.0
	if from, ok := nw.nodes[l.From]; ok && from.Kind == KindStorage {
		h, err := from.Storage.Head()
		if err != nil {
			return Bounds{}, apperror.Wrap(err, apperror.Code(err),
				"head lookup failed for link source").WithField(l.ID)
		}
		head = h
	}
	return l.Constraints(head), nil
}

// Validate проверяет структурную корректность сети: висячие концы звеньев,
// петли, согласованность варианта и payload, инверсию границ. Узлы и звенья,
// помеченные как виртуальные, пропускаются, чтобы повторные решения
// не копили ложных ошибок.
func (nw *Network) Validate() *apperror.ValidationErrors {
	result := apperror.NewValidationErrors()

	if len(nw.nodes) == 0 {
		result.AddError(apperror.CodeEmptyNetwork, "network has no nodes")
		return result
	}

	for _, id := range nw.nodeOrder {
		n := nw.nodes[id]
		if n.IsVirtual() {
			continue
		}
		nw.validateNode(n, result)
	}

	for _, id := range nw.linkOrder {
		l := nw.links[id]
		if l.IsVirtual() {
			continue
		}
		nw.validateLink(l, result)
	}

	return result
}

func (nw *Network) validateNode(n *Node, result *apperror.ValidationErrors) {
	switch n.Kind {
	case KindStorage:
		if n.Storage == nil {
			result.AddErrorWithField(apperror.CodeInvalidNodeKind, "storage node has no storage state", n.ID)
			return
		}
		s := n.Storage
		if s.MinCapacity < 0 {
			result.AddErrorWithField(apperror.CodeInvalidCapacity, "negative min capacity", n.ID)
		}
		if s.MinCapacity > s.MaxCapacity {
			result.Add(apperror.Newf(apperror.CodeInvertedBounds,
				"min capacity %g exceeds max capacity %g", s.MinCapacity, s.MaxCapacity).WithField(n.ID))
		}
		if s.Level < 0 {
			result.AddErrorWithField(apperror.CodeLevelOutOfRange, "negative storage level", n.ID)
		} else if s.Level < s.MinCapacity || s.Level > s.MaxCapacity {
			result.Add(apperror.NewWarningf(apperror.CodeLevelOutOfRange,
				"storage %q level %g outside [%g, %g]", n.ID, s.Level, s.MinCapacity, s.MaxCapacity))
		}
	case KindSource:
		if n.Source == nil {
			result.AddErrorWithField(apperror.CodeInvalidNodeKind, "source node has no source state", n.ID)
		}
	case KindDemand:
		if n.Demand == nil {
			result.AddErrorWithField(apperror.CodeInvalidNodeKind, "demand node has no demand state", n.ID)
			return
		}
		if n.Demand.Priority <= 0 {
			result.AddErrorWithField(apperror.CodeInvalidArgument, "demand priority must be positive", n.ID)
		}
	case KindJunction:
		// нет состояния
	default:
		result.AddErrorWithField(apperror.CodeInvalidNodeKind, "unknown node kind", n.ID)
	}

	// Изолированный узел осмыслен только как источник или потребитель
	if len(n.Inflows) == 0 && len(n.Outflows) == 0 &&
		n.Kind != KindSource && n.Kind != KindDemand {
		result.Add(apperror.NewWarningf(apperror.CodeIsolatedNode,
			"node %q has no connections", n.ID))
	}
}

func (nw *Network) validateLink(l *Link, result *apperror.ValidationErrors) {
	from, fromOK := nw.nodes[l.From]
	if !fromOK {
		result.Add(apperror.Newf(apperror.CodeDanglingLink,
			"link source %q does not exist", l.From).WithField(l.ID))
	}
	if _, ok := nw.nodes[l.To]; !ok {
		result.Add(apperror.Newf(apperror.CodeDanglingLink,
			"link target %q does not exist", l.To).WithField(l.ID))
	}
	if l.From == l.To {
		result.AddErrorWithField(apperror.CodeSelfLoop, "link connects node to itself", l.ID)
	}
	if l.PhysicalCapacity < 0 {
		result.AddErrorWithField(apperror.CodeInvalidCapacity, "negative physical capacity", l.ID)
	}
	if l.MinFlow < 0 {
		result.AddErrorWithField(apperror.CodeInvalidCapacity, "negative min flow", l.ID)
	}
	if l.MinFlow > l.PhysicalCapacity {
		result.Add(apperror.Newf(apperror.CodeInvertedBounds,
			"min flow %g exceeds capacity %g", l.MinFlow, l.PhysicalCapacity).WithField(l.ID))
	}
	if l.Hydraulic != nil && l.Hydraulic.Kind != HydraulicNone {
		if fromOK && from.Kind != KindStorage {
			result.Add(apperror.Newf(apperror.CodeInvalidNetwork,
				"hydraulic model requires a storage source, got %s", from.Kind).WithField(l.ID))
		}
	}
	if l.Control != nil && l.Control.Kind == ControlFraction {
		if l.Control.Fraction < 0 || l.Control.Fraction > 1 {
			result.Add(apperror.Newf(apperror.CodeInvalidArgument,
				"control fraction %g outside [0, 1]", l.Control.Fraction).WithField(l.ID))
		}
	}
}
