package domain

// Workflow — определение рабочего процесса: граф типизированных узлов
// и направленных рёбер.
//
// Workflow создаётся внешним редактором и приходит в движок как
// JSON-сериализуемый снимок. На время выполнения run снимок неизменяем:
// параллельное редактирование живого графа не влияет на уже запущенный run.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID string `json:"id"`

	// Name — имя workflow для отображения и логов.
	Name string `json:"name"`

	// Nodes — узлы графа.
	Nodes []Node `json:"nodes"`

	// Edges — рёбра графа.
	Edges []Edge `json:"edges"`
}

// Node — типизированный узел workflow.
type Node struct {
	// ID — идентификатор узла, уникальный внутри workflow.
	ID string `json:"id"`

	// Type — ссылка на plugin.Descriptor.ID (тип узла).
	Type string `json:"type"`

	// Position — координаты на канвасе редактора.
	// Для выполнения не используется, сохраняется для round-trip.
	Position Position `json:"position,omitempty"`

	// Data — конфигурация экземпляра узла.
	// При выполнении мержится поверх plugin DefaultData.
	Data map[string]any `json:"data,omitempty"`
}

// Position — координаты узла на канвасе. UI-only.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge — направленное ребро: поток данных с выходного порта одного узла
// на входной порт другого.
//
// Пустые SourceHandle/TargetHandle интерпретируются при сборе входов
// как "output" и "input" соответственно.
type Edge struct {
	// ID — идентификатор ребра.
	ID string `json:"id"`

	// Source — ID узла-источника.
	Source string `json:"source"`

	// SourceHandle — ID выходного порта узла-источника.
	SourceHandle string `json:"sourceHandle,omitempty"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// TargetHandle — ID входного порта узла-приёмника.
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ContextKey возвращает ключ contextData для выходного порта узла.
// Формат всегда "<nodeID>.<portID>" — единственный способ адресации
// данных между узлами.
func ContextKey(nodeID, portID string) string {
	return nodeID + "." + portID
}

// NodeByID возвращает узел по ID.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}
