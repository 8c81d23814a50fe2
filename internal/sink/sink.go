package sink

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/domain"
)

// Sink — внешний приёмник результатов выполнения.
//
// Движок отдаёт сюда StepResult на каждое выполнение узла и финальный
// Run при завершении. Как результаты хранятся и отображаются
// (консоль, БД, панель логов) — забота реализации, не движка.
// Реализации не должны блокировать walker надолго.
type Sink interface {
	// Step принимает результат одного выполнения узла.
	Step(result *domain.StepResult)

	// RunFinished принимает run в терминальном статусе.
	RunFinished(run *domain.Run)
}

// Slog — sink, пишущий результаты в структурированный лог.
type Slog struct {
	logger *slog.Logger
}

// NewSlog создаёт slog-sink.
func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{logger: logger}
}

// Step логирует результат выполнения узла.
func (s *Slog) Step(result *domain.StepResult) {
	attrs := []any{
		"run_id", result.RunID,
		"node_id", result.NodeID,
		"node_type", result.NodeType,
		"status", result.Status,
		"duration_ms", result.DurationMS(),
	}

	switch result.Status {
	case domain.StepStatusError:
		attrs = append(attrs, "error", result.Error)
		s.logger.Error("step finished", attrs...)
	case domain.StepStatusSkipped:
		s.logger.Debug("step skipped", attrs...)
	default:
		s.logger.Info("step finished", attrs...)
	}
}

// RunFinished логирует завершение run.
func (s *Slog) RunFinished(run *domain.Run) {
	attrs := []any{
		"run_id", run.ID,
		"workflow_id", run.WorkflowID,
		"status", run.Status,
		"duration_ms", run.Duration().Milliseconds(),
	}
	if run.Error != nil {
		attrs = append(attrs, "error", run.Error.Message, "error_node", run.Error.NodeID)
	}

	s.logger.Info("run finished", attrs...)
}

// Fanout — sink, раздающий результаты нескольким приёмникам.
type Fanout struct {
	sinks []Sink
}

// NewFanout создаёт fanout по непустым sink'ам.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Step раздаёт результат узла всем приёмникам.
func (f *Fanout) Step(result *domain.StepResult) {
	for _, s := range f.sinks {
		s.Step(result)
	}
}

// RunFinished раздаёт завершение run всем приёмникам.
func (f *Fanout) RunFinished(run *domain.Run) {
	for _, s := range f.sinks {
		s.RunFinished(run)
	}
}
