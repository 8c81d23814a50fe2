package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/schedule"
)

// ListSchedules возвращает зарегистрированные расписания.
// GET /api/v1/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules := h.scheduler.List()

	result := make([]ScheduleResponse, len(schedules))
	for i, sched := range schedules {
		result[i] = ScheduleFromDomain(sched)
	}

	List(w, result, len(result))
}

// CreateSchedule регистрирует cron-расписание для workflow.
// POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Workflow == nil {
		BadRequest(w, "workflow is required")
		return
	}
	if err := schedule.ValidateCronExpr(req.CronExpr); err != nil {
		BadRequest(w, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sched := &domain.Schedule{
		Workflow: req.Workflow,
		CronExpr: req.CronExpr,
		Timezone: req.Timezone,
		Enabled:  enabled,
	}

	if err := h.scheduler.Add(sched); err != nil {
		BadRequest(w, err.Error())
		return
	}

	Created(w, ScheduleFromDomain(sched))
}

// DeleteSchedule удаляет расписание.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if err := h.scheduler.Remove(id); err != nil {
		NotFound(w, "schedule not found")
		return
	}

	NoContent(w)
}
