package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — cron-расписание запуска workflow.
//
// В отличие от run, schedule владеет собственным снимком workflow:
// редактор может менять живой граф, но по расписанию выполняется
// зафиксированная при создании schedule версия.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// Workflow — снимок workflow для запуска.
	Workflow *Workflow `json:"workflow"`

	// CronExpr — cron-выражение (5 полей: minute hour dom month dow).
	CronExpr string `json:"cron_expr"`

	// Timezone — IANA timezone для вычисления времени запуска.
	// Пустое значение означает UTC.
	Timezone string `json:"timezone,omitempty"`

	// Enabled — выключенные schedules не запускаются.
	Enabled bool `json:"enabled"`

	// NextDueAt — следующее время запуска (UTC).
	NextDueAt time.Time `json:"next_due_at"`

	// LastRunID — ID последнего созданного run.
	LastRunID uuid.UUID `json:"last_run_id,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`
}

// IsDue возвращает true, если schedule пора запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Enabled && !s.NextDueAt.After(now)
}
