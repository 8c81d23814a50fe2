package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
)

// StartRunRequest — запрос на запуск workflow.
type StartRunRequest struct {
	// Workflow — определение графа для выполнения.
	Workflow *domain.Workflow `json:"workflow"`

	// Payload — полезная нагрузка для trigger-узла.
	Payload map[string]any `json:"payload,omitempty"`
}

// RunResponse — представление run в API.
type RunResponse struct {
	ID            string            `json:"id"`
	WorkflowID    string            `json:"workflow_id"`
	WorkflowName  string            `json:"workflow_name,omitempty"`
	Status        domain.RunStatus  `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    *time.Time        `json:"finished_at,omitempty"`
	CurrentStepID string            `json:"current_step_id,omitempty"`
	ContextData   map[string]any    `json:"context_data,omitempty"`
	Error         *domain.RunError  `json:"error,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(run *domain.Run) RunResponse {
	return RunResponse{
		ID:            run.ID.String(),
		WorkflowID:    run.WorkflowID,
		WorkflowName:  run.WorkflowName,
		Status:        run.Status,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		CurrentStepID: run.CurrentStepID,
		ContextData:   run.ContextData,
		Error:         run.Error,
		DurationMS:    run.Duration().Milliseconds(),
	}
}

// CreateScheduleRequest — запрос на создание расписания.
type CreateScheduleRequest struct {
	Workflow *domain.Workflow `json:"workflow"`
	CronExpr string           `json:"cron_expr"`
	Timezone string           `json:"timezone,omitempty"`
	Enabled  *bool            `json:"enabled,omitempty"`
}

// ScheduleResponse — представление расписания в API.
type ScheduleResponse struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	CronExpr   string     `json:"cron_expr"`
	Timezone   string     `json:"timezone,omitempty"`
	Enabled    bool       `json:"enabled"`
	NextDueAt  time.Time  `json:"next_due_at"`
	LastRunID  string     `json:"last_run_id,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(sched *domain.Schedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:        sched.ID.String(),
		CronExpr:  sched.CronExpr,
		Timezone:  sched.Timezone,
		Enabled:   sched.Enabled,
		NextDueAt: sched.NextDueAt,
		LastRunAt: sched.LastRunAt,
		CreatedAt: sched.CreatedAt,
	}
	if sched.Workflow != nil {
		resp.WorkflowID = sched.Workflow.ID
	}
	if sched.LastRunID != uuid.Nil {
		resp.LastRunID = sched.LastRunID.String()
	}
	return resp
}

// RegisterHookRequest — запрос на регистрацию webhook.
type RegisterHookRequest struct {
	Workflow *domain.Workflow `json:"workflow"`
}

// HookResponse — представление webhook в API.
type HookResponse struct {
	HookID     string `json:"hook_id"`
	WorkflowID string `json:"workflow_id"`
	Path       string `json:"path"`
}
