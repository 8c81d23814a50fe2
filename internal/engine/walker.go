package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/plugin"
	"github.com/shaiso/Conductor/internal/telemetry"
)

// Default configuration values.
const (
	defaultNodeTimeout    = 30 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// StepSink принимает результаты выполнения узлов.
// Реализации — внешние приёмники логов (slog, Postgres, AMQP).
type StepSink interface {
	Step(result *domain.StepResult)
}

// nopSink — заглушка, если sink не задан.
type nopSink struct{}

func (nopSink) Step(*domain.StepResult) {}

// Walker выполняет граф workflow.
//
// Обход устроен как явная очередь работ (nodeID), а не рекурсивный
// спуск: узел ставится в очередь, когда ВСЕ его входящие рёбра из
// достижимого подграфа исходят из уже завершённых узлов. Это даёт
// exactly-once семантику для сходящихся узлов: ромб T→A→C, T→B→C
// выполняет C ровно один раз, после A и B.
//
// Узлы выполняются последовательно — один логический поток управления
// на run. Очередь оставляет возможность параллельного выполнения
// независимых ветвей в будущем, так как exactly-once уже закреплена.
type Walker struct {
	registry       *plugin.Registry
	sink           StepSink
	metrics        *telemetry.Metrics
	logger         *slog.Logger
	nodeTimeout    time.Duration
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Config — конфигурация Walker.
type Config struct {
	// Registry — реестр плагинов (обязателен).
	Registry *plugin.Registry

	// Sink — приёмник StepResult'ов (опционален).
	Sink StepSink

	// Metrics — метрики выполнения узлов (опциональны).
	Metrics *telemetry.Metrics

	// Logger — логгер.
	Logger *slog.Logger

	// NodeTimeout — таймаут одного вызова run-функции (default: 30s).
	// Плагин может переопределить его через Descriptor.Timeout.
	NodeTimeout time.Duration

	// MaxAttempts — попытки для retryable-плагинов (default: 3).
	MaxAttempts int

	// RetryBaseDelay — базовая задержка экспоненциального backoff
	// между попытками (default: 500ms).
	RetryBaseDelay time.Duration
}

// NewWalker создаёт Walker.
func NewWalker(cfg Config) *Walker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := cfg.Sink
	if s == nil {
		s = nopSink{}
	}

	nodeTimeout := cfg.NodeTimeout
	if nodeTimeout <= 0 {
		nodeTimeout = defaultNodeTimeout
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}

	return &Walker{
		registry:       cfg.Registry,
		sink:           s,
		metrics:        cfg.Metrics,
		logger:         logger,
		nodeTimeout:    nodeTimeout,
		maxAttempts:    maxAttempts,
		retryBaseDelay: retryBaseDelay,
	}
}

// Execute выполняет достижимый из entry подграф до исчерпания или
// первой фатальной ошибки.
//
// Завершение: очередь пуста и статус не стал FAILED — run COMPLETED.
// Узлы без пути от entry не выполняются, и это не ошибка. Узлы внутри
// циклов никогда не становятся готовыми (у них всегда остаётся
// незавершённый upstream) — очередь исчерпывается, они остаются
// невыполненными.
func (w *Walker) Execute(ctx context.Context, ec *ExecContext, entryID string) {
	reachable := ec.Graph.Reachable(entryID)

	// waiting — число входящих рёбер из достижимого подграфа,
	// источники которых ещё не завершились.
	waiting := make(map[string]int, len(reachable))
	for id := range reachable {
		for _, edge := range ec.Graph.Incoming(id) {
			if reachable[edge.Source] {
				waiting[id]++
			}
		}
	}

	// Entry ставится в очередь безусловно: ребро, замыкающее цикл
	// обратно в entry, не должно блокировать старт.
	queue := []string{entryID}
	enqueued := map[string]bool{entryID: true}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			ec.Cancel()
			w.emitSkipped(ec, reachable, "")
			return
		}

		nodeID := queue[0]
		queue = queue[1:]

		if !w.executeNode(ctx, ec, nodeID) {
			w.emitSkipped(ec, reachable, nodeID)
			return
		}

		for _, edge := range ec.Graph.Outgoing(nodeID) {
			waiting[edge.Target]--
			if waiting[edge.Target] <= 0 && !enqueued[edge.Target] {
				enqueued[edge.Target] = true
				queue = append(queue, edge.Target)
			}
		}
	}

	ec.Complete()
}

// executeNode выполняет один узел. Возвращает false, если run
// необходимо остановить (фатальная ошибка или отмена).
func (w *Walker) executeNode(ctx context.Context, ec *ExecContext, nodeID string) bool {
	node, ok := ec.Graph.Node(nodeID)
	if !ok {
		// BuildGraph гарантирует существование узла; сюда попадать не должны.
		ec.Fail(nodeID, fmt.Sprintf("node not found in graph: %s", nodeID), "")
		return false
	}

	ec.SetCurrentStep(node.ID)

	desc, ok := w.registry.Get(node.Type)
	if !ok {
		msg := fmt.Sprintf("Plugin not found for node type: %s", node.Type)
		w.logger.Error("plugin not found",
			"run_id", ec.RunID(),
			"node_id", node.ID,
			"node_type", node.Type,
		)
		ec.Fail(node.ID, msg, "")
		if w.metrics != nil {
			w.metrics.NodeFailed(node.Type)
		}
		return false
	}

	inputs := w.gatherInputs(ec, node)

	rc := &plugin.RunContext{
		NodeData: desc.MergedData(node.Data),
	}
	if desc.IsTrigger() {
		rc.TriggerPayload = ec.Payload
	}

	result := &domain.StepResult{
		RunID:     ec.RunID(),
		NodeID:    node.ID,
		NodeType:  node.Type,
		StartedAt: time.Now().UTC(),
		Inputs:    inputs,
	}

	outputs, attempt, err := w.invoke(ctx, desc, inputs, rc)
	result.Attempt = attempt
	result.CompletedAt = time.Now().UTC()

	if err != nil {
		result.Status = domain.StepStatusError
		result.Error = err.Error()
		w.sink.Step(result)

		if w.metrics != nil {
			w.metrics.NodeFailed(node.Type)
		}

		if errors.Is(err, ErrRunCancelled) || errors.Is(err, context.Canceled) {
			w.logger.Info("node cancelled", "run_id", ec.RunID(), "node_id", node.ID)
			ec.Cancel()
			return false
		}

		w.logger.Error("node execution failed",
			"run_id", ec.RunID(),
			"node_id", node.ID,
			"node_type", node.Type,
			"attempt", attempt,
			"error", err,
		)
		ec.Fail(node.ID, err.Error(), fmt.Sprintf("node type %s, attempt %d", node.Type, attempt))
		return false
	}

	result.Status = domain.StepStatusSuccess
	result.Outputs = outputs
	ec.StoreOutputs(node.ID, outputs)
	w.sink.Step(result)

	if w.metrics != nil {
		w.metrics.NodeExecuted(node.Type, result.CompletedAt.Sub(result.StartedAt))
	}

	w.logger.Debug("node executed",
		"run_id", ec.RunID(),
		"node_id", node.ID,
		"node_type", node.Type,
		"outputs", len(outputs),
	)

	return true
}

// gatherInputs собирает входы узла обратным проходом по входящим рёбрам.
//
// Для каждого ребра значение ищется в contextData по ключу
// "<source>.<sourceHandle|'output'>" и кладётся под
// "<targetHandle|'input'>". Отсутствующее upstream-значение — warning,
// ключ просто не попадает во входы: плагин обязан защищаться от
// неполных входов сам, движок контракт входов не навязывает.
func (w *Walker) gatherInputs(ec *ExecContext, node *domain.Node) map[string]any {
	inputs := make(map[string]any)

	for _, edge := range ec.Graph.Incoming(node.ID) {
		sourceHandle := edge.SourceHandle
		if sourceHandle == "" {
			sourceHandle = "output"
		}

		value, ok := ec.Lookup(domain.ContextKey(edge.Source, sourceHandle))
		if !ok {
			w.logger.Warn("upstream value missing, input omitted",
				"run_id", ec.RunID(),
				"node_id", node.ID,
				"source", edge.Source,
				"source_handle", sourceHandle,
			)
			continue
		}

		targetHandle := edge.TargetHandle
		if targetHandle == "" {
			targetHandle = "input"
		}
		inputs[targetHandle] = value
	}

	return inputs
}

// invoke вызывает run-функцию плагина с таймаутом и retry.
// Возвращает выходы, номер последней попытки и ошибку.
func (w *Walker) invoke(ctx context.Context, desc *plugin.Descriptor, inputs map[string]any, rc *plugin.RunContext) (map[string]any, int, error) {
	maxAttempts := 1
	if desc.Retryable {
		maxAttempts = desc.MaxAttempts
		if maxAttempts <= 0 {
			maxAttempts = w.maxAttempts
		}
	}

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = w.nodeTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outputs, err := w.invokeOnce(ctx, desc, inputs, rc, timeout)
		if err == nil {
			return outputs, attempt, nil
		}
		lastErr = err

		// Отмена run не ретраится.
		if ctx.Err() != nil {
			return nil, attempt, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
		}

		if attempt < maxAttempts {
			delay := w.retryBaseDelay << (attempt - 1)
			w.logger.Warn("node attempt failed, retrying",
				"plugin_id", desc.ID,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
			case <-timer.C:
			}
		}
	}

	return nil, maxAttempts, lastErr
}

// invokeOnce выполняет один вызов run-функции.
//
// Таймаут навязывается движком: run-функция выполняется в отдельной
// горутине, и зависший плагин проваливает узел, а не весь Supervisor.
// Горутина зависшего плагина при этом доживает своё — её результат
// отбрасывается.
func (w *Walker) invokeOnce(ctx context.Context, desc *plugin.Descriptor, inputs map[string]any, rc *plugin.RunContext, timeout time.Duration) (map[string]any, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		outputs map[string]any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("plugin panic: %v", r)}
			}
		}()

		outputs, err := desc.Run(callCtx, inputs, rc)
		done <- outcome{outputs: outputs, err: err}
	}()

	select {
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrRunCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s after %s", ErrNodeTimeout, desc.ID, timeout)
	case o := <-done:
		return o.outputs, o.err
	}
}

// emitSkipped отправляет в sink результаты skipped для достижимых
// узлов, не успевших выполниться до остановки run. failedNodeID
// исключается — для него уже отправлен результат error.
func (w *Walker) emitSkipped(ec *ExecContext, reachable map[string]bool, failedNodeID string) {
	now := time.Now().UTC()

	for nodeID := range reachable {
		if nodeID == failedNodeID || ec.IsFinished(nodeID) {
			continue
		}

		node, ok := ec.Graph.Node(nodeID)
		if !ok {
			continue
		}

		w.sink.Step(&domain.StepResult{
			RunID:       ec.RunID(),
			NodeID:      nodeID,
			NodeType:    node.Type,
			Status:      domain.StepStatusSkipped,
			StartedAt:   now,
			CompletedAt: now,
		})
	}
}
