package httpapi

import (
	"net/http"
)

// ListPlugins возвращает зарегистрированные типы узлов.
// GET /api/v1/plugins?category=...
//
// Дескрипторы сериализуются целиком (порты, поля конфигурации,
// данные по умолчанию) — редактор строит по ним палитру узлов.
func (h *Handler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		descriptors := h.registry.ByCategory(category)
		List(w, descriptors, len(descriptors))
		return
	}

	descriptors := h.registry.All()
	List(w, descriptors, len(descriptors))
}

// GetPlugin возвращает дескриптор типа узла.
// GET /api/v1/plugins/{id}
func (h *Handler) GetPlugin(w http.ResponseWriter, r *http.Request) {
	d, ok := h.registry.Get(r.PathValue("id"))
	if !ok {
		NotFound(w, "plugin not found")
		return
	}

	Success(w, d)
}
