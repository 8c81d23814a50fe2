package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// StartRun запускает workflow асинхронно.
// POST /api/v1/runs
//
// Возвращает 202 со снимком run: выполнение продолжается в фоне,
// прогресс опрашивается через GET /api/v1/runs/{id}. Структурно
// некорректный workflow тоже отвечает 202 — исход в Run.Status.
func (h *Handler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Workflow == nil {
		BadRequest(w, "workflow is required")
		return
	}

	run := h.supervisor.Submit(req.Workflow, req.Payload)

	Accepted(w, RunFromDomain(run))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, ok := h.supervisor.RunStatus(id)
	if !ok {
		NotFound(w, "run not found")
		return
	}

	Success(w, RunFromDomain(run))
}

// CancelRun отменяет выполняющийся run.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	if h.supervisor.Cancel(id) {
		run, _ := h.supervisor.RunStatus(id)
		if run != nil {
			Success(w, RunFromDomain(run))
			return
		}
		Success(w, map[string]string{"id": id.String()})
		return
	}

	// Не среди активных: либо уже завершён, либо неизвестен
	if run, ok := h.supervisor.RunStatus(id); ok {
		InvalidState(w, "run is already finished: "+string(run.Status))
		return
	}
	NotFound(w, "run not found")
}
