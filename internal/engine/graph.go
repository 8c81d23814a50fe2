package engine

import (
	"fmt"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/plugin"
)

// Graph — индекс workflow для обхода.
//
// Строится один раз на run из снимка workflow: узлы по ID,
// входящие и исходящие рёбра по узлам. Position и прочие UI-поля
// игнорируются.
type Graph struct {
	// Workflow — исходный снимок.
	Workflow *domain.Workflow

	// nodes — узлы по ID.
	nodes map[string]*domain.Node

	// incoming — входящие рёбра по ID узла-приёмника.
	incoming map[string][]*domain.Edge

	// outgoing — исходящие рёбра по ID узла-источника.
	outgoing map[string][]*domain.Edge
}

// BuildGraph валидирует workflow и строит индекс.
//
// Проверяются только структурные инварианты: непустые ID и типы,
// уникальность ID узлов, отсутствие висячих рёбер. Совпадение типов
// портов на рёбрах НЕ проверяется — это забота редактора, движок
// выполняет граф как есть.
func BuildGraph(wf *domain.Workflow) (*Graph, error) {
	if wf == nil || len(wf.Nodes) == 0 {
		return nil, ErrNoNodes
	}

	g := &Graph{
		Workflow: wf,
		nodes:    make(map[string]*domain.Node, len(wf.Nodes)),
		incoming: make(map[string][]*domain.Edge),
		outgoing: make(map[string][]*domain.Edge),
	}

	for i := range wf.Nodes {
		node := &wf.Nodes[i]

		if node.ID == "" {
			return nil, newStructuralError("", "", "node has empty ID", ErrEmptyNodeID)
		}
		if node.Type == "" {
			return nil, newStructuralError(node.ID, "", "node has empty type", ErrEmptyNodeType)
		}
		if _, exists := g.nodes[node.ID]; exists {
			return nil, newStructuralError(node.ID, "",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		g.nodes[node.ID] = node
	}

	for i := range wf.Edges {
		edge := &wf.Edges[i]

		if _, ok := g.nodes[edge.Source]; !ok {
			return nil, newStructuralError("", edge.ID,
				fmt.Sprintf("source node not found: %s", edge.Source), ErrDanglingEdge)
		}
		if _, ok := g.nodes[edge.Target]; !ok {
			return nil, newStructuralError("", edge.ID,
				fmt.Sprintf("target node not found: %s", edge.Target), ErrDanglingEdge)
		}

		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge)
	}

	return g, nil
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) (*domain.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Incoming возвращает входящие рёбра узла.
func (g *Graph) Incoming(nodeID string) []*domain.Edge {
	return g.incoming[nodeID]
}

// Outgoing возвращает исходящие рёбра узла.
func (g *Graph) Outgoing(nodeID string) []*domain.Edge {
	return g.outgoing[nodeID]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Triggers возвращает trigger-узлы: узлы, чей плагин не объявляет
// входных портов. Порядок — порядок узлов в workflow (стабильный).
//
// Узлы с незарегистрированным типом триггерами не считаются —
// отсутствие плагина всплывёт как фатальная ошибка, если такой узел
// окажется на пути выполнения.
func (g *Graph) Triggers(registry *plugin.Registry) []*domain.Node {
	var triggers []*domain.Node
	for i := range g.Workflow.Nodes {
		node := &g.Workflow.Nodes[i]
		if d, ok := registry.Get(node.Type); ok && d.IsTrigger() {
			triggers = append(triggers, node)
		}
	}
	return triggers
}

// Reachable возвращает множество узлов, достижимых из entry по
// исходящим рёбрам (включая сам entry).
func (g *Graph) Reachable(entryID string) map[string]bool {
	reachable := make(map[string]bool)

	stack := []string{entryID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reachable[id] {
			continue
		}
		reachable[id] = true

		for _, edge := range g.outgoing[id] {
			if !reachable[edge.Target] {
				stack = append(stack, edge.Target)
			}
		}
	}

	return reachable
}
