package plugin

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// ErrEmptyID — попытка зарегистрировать дескриптор без ID.
var ErrEmptyID = errors.New("plugin descriptor has empty id")

// Registry — реестр типов узлов.
//
// Заполняется один раз при старте процесса, дальше только читается.
// Потокобезопасен; чтения не блокируют друг друга.
//
// Registry — сконструированная зависимость: он внедряется в Supervisor
// и Walker явно, а не живёт глобальной переменной, чтобы тесты могли
// собирать собственные реестры.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Descriptor
	logger  *slog.Logger
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		plugins: make(map[string]*Descriptor),
		logger:  logger,
	}
}

// Register регистрирует дескриптор по его ID.
//
// Повторная регистрация под тем же ID перезаписывает предыдущий
// дескриптор (last-write-wins) с предупреждением в логе.
// Кроме непустого ID ничего не валидируется: некорректные списки
// портов — ответственность автора плагина и всплывают как ошибки
// выполнения при вызове Run.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.ID == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[d.ID]; exists {
		r.logger.Warn("plugin already registered, overwriting", "plugin_id", d.ID)
	}
	r.plugins[d.ID] = d

	r.logger.Debug("plugin registered", "plugin_id", d.ID, "name", d.Name)
	return nil
}

// Get возвращает дескриптор по ID.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.plugins[id]
	return d, ok
}

// All возвращает снимок всех дескрипторов, отсортированный по ID.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Descriptor, 0, len(r.plugins))
	for _, d := range r.plugins {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// ByCategory возвращает дескрипторы указанной категории.
func (r *Registry) ByCategory(category string) []*Descriptor {
	all := r.All()

	filtered := make([]*Descriptor, 0, len(all))
	for _, d := range all {
		if d.Category == category {
			filtered = append(filtered, d)
		}
	}
	return filtered
}

// Size возвращает количество зарегистрированных плагинов.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
