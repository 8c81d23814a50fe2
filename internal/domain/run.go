package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — экземпляр выполнения workflow.
//
// Run создаётся когда:
// - Пользователь запускает workflow вручную (через API/CLI)
// - Scheduler запускает workflow по cron-расписанию
// - Входящий webhook запускает привязанный workflow
//
// Run мутируется только walker'ом в процессе обхода графа;
// внешние читатели получают снимок через Supervisor.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ID выполняемого workflow.
	WorkflowID string `json:"workflow_id"`

	// WorkflowName — имя workflow на момент запуска (для логов и выдачи).
	WorkflowName string `json:"workflow_name,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, пока run не финализирован.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CurrentStepID — ID узла, выполняемого в данный момент
	// (или последнего выполненного).
	CurrentStepID string `json:"current_step_id,omitempty"`

	// ContextData — накопленные выходы узлов.
	// Ключи всегда вида "<nodeID>.<outputPortID>".
	ContextData map[string]any `json:"context_data,omitempty"`

	// Error — терминальная ошибка run, если Status == FAILED.
	Error *RunError `json:"error,omitempty"`
}

// RunError — ошибка, завершившая run.
type RunError struct {
	// NodeID — узел, на котором произошла ошибка.
	// Пустой для структурных ошибок уровня всего графа.
	NodeID string `json:"node_id,omitempty"`

	// Message — сообщение об ошибке.
	Message string `json:"message"`

	// Details — дополнительный контекст (текст исходной ошибки и т.п.).
	Details string `json:"details,omitempty"`
}

// NewRun создаёт run в статусе PENDING для указанного workflow.
func NewRun(wf *Workflow) *Run {
	return &Run{
		ID:           uuid.New(),
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Status:       RunStatusPending,
		StartedAt:    time.Now().UTC(),
		ContextData:  make(map[string]any),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// IsFinished возвращает true, если run завершён.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
	r.StartedAt = time.Now().UTC()
}

// MarkCompleted переводит run в статус COMPLETED.
func (r *Run) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(nodeID, message, details string) {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = &RunError{NodeID: nodeID, Message: message, Details: details}
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled() {
	now := time.Now().UTC()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
}

// Clone возвращает копию run для выдачи внешним читателям.
// ContextData копируется поверхностно: значения после записи в контекст
// не мутируются.
func (r *Run) Clone() *Run {
	c := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	c.ContextData = make(map[string]any, len(r.ContextData))
	for k, v := range r.ContextData {
		c.ContextData[k] = v
	}
	return &c
}
