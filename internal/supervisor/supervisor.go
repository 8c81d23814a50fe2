package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/events"
	"github.com/shaiso/Conductor/internal/plugin"
	"github.com/shaiso/Conductor/internal/sink"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Default configuration values.
const (
	defaultRetention      = 15 * time.Minute
	janitorInterval       = time.Minute
	noTriggerErrorMessage = "No trigger node found."
)

// Supervisor управляет выполнением runs.
//
// Supervisor:
//   - Создаёт run и ExecContext для каждого запуска workflow
//   - Находит trigger-узел и отдаёт обход Walker'у
//   - Ведёт таблицу активных runs для getRunStatus и отмены
//   - Держит завершённые runs в памяти в течение retention-окна,
//     после чего janitor их выселяет
//
// StartWorkflow никогда не возвращает ошибку: исход сообщается
// через Run.Status.
type Supervisor struct {
	registry *plugin.Registry
	walker   *engine.Walker
	sink     sink.Sink
	metrics  *telemetry.Metrics
	events   *events.Publisher
	logger   *slog.Logger

	retention time.Duration

	mu       sync.RWMutex
	active   map[uuid.UUID]*activeRun
	finished map[uuid.UUID]*finishedRun

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// activeRun — выполняющийся run.
type activeRun struct {
	exec    *engine.ExecContext
	entryID string
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// finishedRun — завершённый run, ожидающий выселения.
type finishedRun struct {
	run     *domain.Run
	evictAt time.Time
}

// Config — конфигурация Supervisor.
type Config struct {
	// Registry — реестр плагинов (обязателен).
	Registry *plugin.Registry

	// Sink — приёмник StepResult'ов и завершённых runs (опционален).
	Sink sink.Sink

	// Metrics — метрики runs (опциональны).
	Metrics *telemetry.Metrics

	// Events — publisher событий run.started (опционален).
	Events *events.Publisher

	// Logger — логгер.
	Logger *slog.Logger

	// NodeTimeout — таймаут выполнения узла (default: 30s).
	NodeTimeout time.Duration

	// Retention — сколько держать завершённые runs в памяти
	// для getRunStatus (default: 15m).
	Retention time.Duration
}

// New создаёт Supervisor и запускает janitor завершённых runs.
func New(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	var stepSink engine.StepSink
	if cfg.Sink != nil {
		stepSink = cfg.Sink
	}

	s := &Supervisor{
		registry:  cfg.Registry,
		sink:      cfg.Sink,
		metrics:   cfg.Metrics,
		events:    cfg.Events,
		logger:    logger,
		retention: retention,
		active:    make(map[uuid.UUID]*activeRun),
		finished:  make(map[uuid.UUID]*finishedRun),
		stopCh:    make(chan struct{}),
	}

	s.walker = engine.NewWalker(engine.Config{
		Registry:    cfg.Registry,
		Sink:        stepSink,
		Metrics:     cfg.Metrics,
		Logger:      logger,
		NodeTimeout: cfg.NodeTimeout,
	})

	s.wg.Add(1)
	go s.janitor()

	return s
}

// StartWorkflow запускает workflow и синхронно дожидается полного
// завершения достижимого подграфа. Возвращает run в терминальном
// статусе.
func (s *Supervisor) StartWorkflow(wf *domain.Workflow, payload map[string]any) *domain.Run {
	ar, failed := s.begin(wf, payload)
	if ar == nil {
		return failed
	}

	s.walk(ar)
	return ar.exec.Snapshot()
}

// Submit запускает workflow асинхронно: run ставится на выполнение,
// снимок возвращается сразу (scheduled, not completed). Прогресс
// опрашивается через RunStatus.
func (s *Supervisor) Submit(wf *domain.Workflow, payload map[string]any) *domain.Run {
	ar, failed := s.begin(wf, payload)
	if ar == nil {
		return failed
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.walk(ar)
	}()

	return ar.exec.Snapshot()
}

// begin валидирует workflow, находит trigger и регистрирует run.
// При структурной ошибке возвращает (nil, финализированный run).
func (s *Supervisor) begin(wf *domain.Workflow, payload map[string]any) (*activeRun, *domain.Run) {
	run := domain.NewRun(wf)

	graph, err := engine.BuildGraph(wf)
	if err != nil {
		s.logger.Error("invalid workflow definition",
			"workflow_id", wf.ID,
			"run_id", run.ID,
			"error", err,
		)
		run.MarkFailed("", "invalid workflow definition", err.Error())
		s.finalizeStructural(run)
		return nil, run
	}

	triggers := graph.Triggers(s.registry)
	if len(triggers) == 0 {
		s.logger.Error("no trigger node found in workflow definition",
			"workflow_id", wf.ID,
			"run_id", run.ID,
		)
		run.MarkFailed("", noTriggerErrorMessage, "")
		s.finalizeStructural(run)
		return nil, run
	}

	// Политика, а не случайность: для определённого поведения workflow
	// должен иметь ровно один входной узел. При нескольких триггерах
	// выполняется первый в порядке массива узлов.
	if len(triggers) > 1 {
		s.logger.Warn("multiple trigger nodes found, executing the first one only",
			"workflow_id", wf.ID,
			"run_id", run.ID,
			"trigger_count", len(triggers),
			"entry_node", triggers[0].ID,
		)
	}
	entry := triggers[0]

	run.MarkRunning()
	ec := engine.NewExecContext(run, graph, payload)

	runCtx, cancel := context.WithCancel(context.Background())
	ar := &activeRun{
		exec:    ec,
		entryID: entry.ID,
		runCtx:  runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	s.active[run.ID] = ar
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunStarted()
	}
	if s.events != nil {
		s.events.RunStarted(ec.Snapshot())
	}

	s.logger.Info("run started",
		"run_id", run.ID,
		"workflow_id", wf.ID,
		"workflow_name", wf.Name,
		"entry_node", entry.ID,
		"nodes", graph.Size(),
	)

	return ar, nil
}

// walk выполняет обход и финализирует run.
func (s *Supervisor) walk(ar *activeRun) {
	defer close(ar.done)
	defer ar.cancel()

	s.walker.Execute(ar.runCtx, ar.exec, ar.entryID)

	snap := ar.exec.Snapshot()

	s.mu.Lock()
	delete(s.active, snap.ID)
	s.finished[snap.ID] = &finishedRun{
		run:     snap,
		evictAt: time.Now().Add(s.retention),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunFinished(string(snap.Status))
	}
	if s.sink != nil {
		s.sink.RunFinished(snap)
	}

	s.logger.Info("run finished",
		"run_id", snap.ID,
		"workflow_id", snap.WorkflowID,
		"status", snap.Status,
		"duration_ms", snap.Duration().Milliseconds(),
	)
}

// finalizeStructural финализирует run, упавший до начала обхода.
func (s *Supervisor) finalizeStructural(run *domain.Run) {
	snap := run.Clone()

	s.mu.Lock()
	s.finished[snap.ID] = &finishedRun{
		run:     snap,
		evictAt: time.Now().Add(s.retention),
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RunStarted()
		s.metrics.RunFinished(string(snap.Status))
	}
	if s.sink != nil {
		s.sink.RunFinished(snap)
	}
}

// RunStatus возвращает снимок run по ID: активного или завершённого
// в пределах retention-окна.
func (s *Supervisor) RunStatus(runID uuid.UUID) (*domain.Run, bool) {
	s.mu.RLock()
	ar, active := s.active[runID]
	fr, done := s.finished[runID]
	s.mu.RUnlock()

	if active {
		return ar.exec.Snapshot(), true
	}
	if done {
		return fr.run.Clone(), true
	}
	return nil, false
}

// ActiveCount возвращает количество выполняющихся runs.
func (s *Supervisor) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Cancel отменяет выполняющийся run. Возвращает false, если run
// не найден среди активных.
func (s *Supervisor) Cancel(runID uuid.UUID) bool {
	s.mu.RLock()
	ar, ok := s.active[runID]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	s.logger.Info("cancelling run", "run_id", runID)
	ar.cancel()
	return true
}

// Stop отменяет все активные runs и дожидается их завершения.
func (s *Supervisor) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})

	s.mu.RLock()
	for _, ar := range s.active {
		ar.cancel()
	}
	s.mu.RUnlock()

	s.wg.Wait()
	s.logger.Info("supervisor stopped")
}

// janitor периодически выселяет завершённые runs, у которых истекло
// retention-окно.
func (s *Supervisor) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, fr := range s.finished {
				if now.After(fr.evictAt) {
					delete(s.finished, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
