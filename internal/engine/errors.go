package engine

import "errors"

// Структурные ошибки графа. Фатальны для всего run, без retry.
var (
	// ErrNoNodes — workflow не содержит узлов.
	ErrNoNodes = errors.New("workflow has no nodes")

	// ErrEmptyNodeID — узел без ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrEmptyNodeType — узел без типа.
	ErrEmptyNodeType = errors.New("node has empty type")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDanglingEdge — ребро ссылается на несуществующий узел.
	ErrDanglingEdge = errors.New("edge references unknown node")

	// ErrNoTrigger — в workflow нет ни одного trigger-узла.
	ErrNoTrigger = errors.New("no trigger node found")

	// ErrPluginNotFound — тип узла не зарегистрирован в реестре.
	ErrPluginNotFound = errors.New("plugin not found")
)

// Ошибки выполнения узлов.
var (
	// ErrNodeTimeout — run-функция узла превысила таймаут.
	ErrNodeTimeout = errors.New("node execution timeout")

	// ErrRunCancelled — выполнение run отменено оператором.
	ErrRunCancelled = errors.New("run cancelled")
)

// StructuralError — структурная ошибка с привязкой к узлу или ребру.
type StructuralError struct {
	NodeID  string // ID узла, если применимо
	EdgeID  string // ID ребра, если применимо
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *StructuralError) Error() string {
	switch {
	case e.NodeID != "":
		return "node " + e.NodeID + ": " + e.Message
	case e.EdgeID != "":
		return "edge " + e.EdgeID + ": " + e.Message
	default:
		return e.Message
	}
}

// Unwrap возвращает базовую ошибку.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

// newStructuralError создаёт структурную ошибку для узла.
func newStructuralError(nodeID, edgeID, message string, err error) *StructuralError {
	return &StructuralError{
		NodeID:  nodeID,
		EdgeID:  edgeID,
		Message: message,
		Err:     err,
	}
}
