package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/shaiso/Conductor/internal/domain"
)

// maxHookBody — предел размера тела webhook-запроса.
const maxHookBody = 1 * 1024 * 1024 // 1 MB

// HookStore — реестр webhook-привязок: hookID → снимок workflow.
//
// Входящий POST на /api/v1/hooks/{hookID} запускает привязанный
// workflow с телом запроса в качестве полезной нагрузки триггера.
type HookStore struct {
	mu    sync.RWMutex
	hooks map[string]*domain.Workflow
}

// NewHookStore создаёт пустой HookStore.
func NewHookStore() *HookStore {
	return &HookStore{
		hooks: make(map[string]*domain.Workflow),
	}
}

// Set привязывает workflow к hookID. Существующая привязка
// перезаписывается.
func (s *HookStore) Set(hookID string, wf *domain.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[hookID] = wf
}

// Get возвращает workflow, привязанный к hookID.
func (s *HookStore) Get(hookID string) (*domain.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.hooks[hookID]
	return wf, ok
}

// Delete удаляет привязку. Возвращает false, если её не было.
func (s *HookStore) Delete(hookID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[hookID]; !ok {
		return false
	}
	delete(s.hooks, hookID)
	return true
}

// RegisterHook привязывает workflow к webhook.
// PUT /api/v1/hooks/{hookID}
func (h *Handler) RegisterHook(w http.ResponseWriter, r *http.Request) {
	hookID := r.PathValue("hookID")

	var req RegisterHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Workflow == nil {
		BadRequest(w, "workflow is required")
		return
	}

	h.hooks.Set(hookID, req.Workflow)
	h.logger.Info("webhook registered", "hook_id", hookID, "workflow_id", req.Workflow.ID)

	Created(w, HookResponse{
		HookID:     hookID,
		WorkflowID: req.Workflow.ID,
		Path:       "/api/v1/hooks/" + hookID,
	})
}

// DeleteHook удаляет webhook-привязку.
// DELETE /api/v1/hooks/{hookID}
func (h *Handler) DeleteHook(w http.ResponseWriter, r *http.Request) {
	hookID := r.PathValue("hookID")

	if !h.hooks.Delete(hookID) {
		NotFound(w, "hook not found")
		return
	}

	h.logger.Info("webhook deleted", "hook_id", hookID)
	NoContent(w)
}

// FireHook запускает workflow, привязанный к webhook.
// POST /api/v1/hooks/{hookID}
//
// Тело запроса (JSON-объект) становится полезной нагрузкой триггера
// вместе с заголовками и query-параметрами. Отвечает 202: выполнение
// асинхронное.
func (h *Handler) FireHook(w http.ResponseWriter, r *http.Request) {
	hookID := r.PathValue("hookID")

	wf, ok := h.hooks.Get(hookID)
	if !ok {
		NotFound(w, "hook not found")
		return
	}

	var body map[string]any
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxHookBody))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			BadRequest(w, "request body must be a JSON object")
			return
		}
	}

	headers := make(map[string]string)
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	query := make(map[string]string)
	for key := range r.URL.Query() {
		query[key] = r.URL.Query().Get(key)
	}

	payload := map[string]any{
		"hook_id": hookID,
		"body":    body,
		"headers": headers,
		"query":   query,
	}

	run := h.supervisor.Submit(wf, payload)

	Accepted(w, RunFromDomain(run))
}
