package httpapi

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
//
// Middleware применяется здесь, на каждом маршруте — единственный слой
// на запрос. Оборачивать mux снаружи ещё раз не нужно.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	middlewares := []Middleware{
		Recovery(h.logger),
		Logging(h.logger),
	}
	if h.metrics != nil {
		middlewares = append(middlewares, Metrics(h.metrics))
	}
	chain := Chain(middlewares...)

	// Runs
	mux.Handle("POST /api/v1/runs", chain(http.HandlerFunc(h.StartRun)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))
	mux.Handle("POST /api/v1/runs/{id}/cancel", chain(http.HandlerFunc(h.CancelRun)))

	// Plugins
	mux.Handle("GET /api/v1/plugins", chain(http.HandlerFunc(h.ListPlugins)))
	mux.Handle("GET /api/v1/plugins/{id}", chain(http.HandlerFunc(h.GetPlugin)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))

	// Webhooks
	mux.Handle("PUT /api/v1/hooks/{hookID}", chain(http.HandlerFunc(h.RegisterHook)))
	mux.Handle("DELETE /api/v1/hooks/{hookID}", chain(http.HandlerFunc(h.DeleteHook)))
	mux.Handle("POST /api/v1/hooks/{hookID}", chain(http.HandlerFunc(h.FireHook)))

	// Health
	mux.Handle("GET /healthz", http.HandlerFunc(h.Healthz))
}

// Healthz — проверка живости процесса.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"active_runs": h.supervisor.ActiveCount(),
		"plugins":     h.registry.Size(),
	})
}
