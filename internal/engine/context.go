package engine

import (
	"sync"

	"github.com/shaiso/Conductor/internal/domain"
)

// ExecContext — изменяемое состояние одного run.
//
// ContextData — единственный источник правды для передачи данных между
// узлами: выходы пишутся под ключами "<nodeID>.<portID>", входы
// собираются обратным проходом по входящим рёбрам. Никакой узел не
// читает значения по прямой ссылке на другой узел.
//
// Все мутации сериализуются одним мьютексом на run: walker выполняет
// узлы последовательно, но статус и contextData конкурентно читают
// API-обработчики и janitor Supervisor'а.
type ExecContext struct {
	// Graph — индекс графа run.
	Graph *Graph

	// Payload — полезная нагрузка триггера (webhook, scheduler).
	Payload map[string]any

	mu  sync.Mutex
	run *domain.Run

	// finished — узлы, завершившиеся успехом.
	finished map[string]bool
}

// NewExecContext создаёт контекст выполнения для run.
func NewExecContext(run *domain.Run, graph *Graph, payload map[string]any) *ExecContext {
	return &ExecContext{
		Graph:    graph,
		Payload:  payload,
		run:      run,
		finished: make(map[string]bool),
	}
}

// Snapshot возвращает копию run для внешних читателей.
func (ec *ExecContext) Snapshot() *domain.Run {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.run.Clone()
}

// RunID возвращает строковый ID run.
func (ec *ExecContext) RunID() string {
	return ec.run.ID.String()
}

// Status возвращает текущий статус run.
func (ec *ExecContext) Status() domain.RunStatus {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.run.Status
}

// SetCurrentStep отмечает узел, выполняемый в данный момент.
func (ec *ExecContext) SetCurrentStep(nodeID string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.run.CurrentStepID = nodeID
}

// Lookup возвращает значение contextData по ключу "<nodeID>.<portID>".
func (ec *ExecContext) Lookup(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	v, ok := ec.run.ContextData[key]
	return v, ok
}

// StoreOutputs записывает выходы узла в contextData и помечает узел
// завершённым. Ключи — "<nodeID>.<portID>".
func (ec *ExecContext) StoreOutputs(nodeID string, outputs map[string]any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	for portID, value := range outputs {
		ec.run.ContextData[domain.ContextKey(nodeID, portID)] = value
	}
	ec.finished[nodeID] = true
}

// IsFinished возвращает true, если узел уже завершился успехом.
func (ec *ExecContext) IsFinished(nodeID string) bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.finished[nodeID]
}

// MarkRunning переводит run в RUNNING.
func (ec *ExecContext) MarkRunning() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.run.MarkRunning()
}

// Fail переводит run в FAILED с ошибкой. Повторные вызовы после
// первого фатального исхода игнорируются: терминальный статус
// не перезаписывается.
func (ec *ExecContext) Fail(nodeID, message, details string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if ec.run.Status.IsTerminal() {
		return
	}
	ec.run.MarkFailed(nodeID, message, details)
}

// Complete переводит run в COMPLETED, если он ещё не финализирован.
func (ec *ExecContext) Complete() {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if ec.run.Status.IsTerminal() {
		return
	}
	ec.run.MarkCompleted()
}

// Cancel переводит run в CANCELLED, если он ещё не финализирован.
func (ec *ExecContext) Cancel() {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	if ec.run.Status.IsTerminal() {
		return
	}
	ec.run.MarkCancelled()
}
