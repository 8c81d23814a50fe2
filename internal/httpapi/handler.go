package httpapi

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/plugin"
	"github.com/shaiso/Conductor/internal/schedule"
	"github.com/shaiso/Conductor/internal/supervisor"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	supervisor *supervisor.Supervisor
	scheduler  *schedule.Scheduler
	registry   *plugin.Registry
	hooks      *HookStore
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Supervisor *supervisor.Supervisor
	Scheduler  *schedule.Scheduler
	Registry   *plugin.Registry
	Hooks      *HookStore
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NewHookStore()
	}

	return &Handler{
		supervisor: cfg.Supervisor,
		scheduler:  cfg.Scheduler,
		registry:   cfg.Registry,
		hooks:      hooks,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}
