package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/plugin"
)

var errBoom = errors.New("boom")

// captureSink собирает StepResult'ы для проверок.
type captureSink struct {
	mu      sync.Mutex
	results []*domain.StepResult
}

func (s *captureSink) Step(result *domain.StepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

func (s *captureSink) byNode(nodeID string) *domain.StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.NodeID == nodeID {
			return r
		}
	}
	return nil
}

func (s *captureSink) statuses() map[string]domain.StepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.StepStatus, len(s.results))
	for _, r := range s.results {
		out[r.NodeID] = r.Status
	}
	return out
}

// newTestRegistry собирает реестр с плагинами для тестов обхода.
func newTestRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry(slog.Default())

	reg.Register(&plugin.Descriptor{
		ID: "trigger",
		Outputs: []plugin.PortDescriptor{
			{ID: "output", DataType: plugin.DataTypeAny},
		},
		Run: func(_ context.Context, _ map[string]any, rc *plugin.RunContext) (map[string]any, error) {
			payload := rc.TriggerPayload
			if payload == nil {
				payload = make(map[string]any)
			}
			return map[string]any{"output": payload}, nil
		},
	})

	// adder складывает num1 и num2; отсутствующий вход считается нулём
	reg.Register(&plugin.Descriptor{
		ID: "adder",
		Inputs: []plugin.PortDescriptor{
			{ID: "num1", DataType: plugin.DataTypeNumber},
			{ID: "num2", DataType: plugin.DataTypeNumber},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "sum_output", DataType: plugin.DataTypeNumber},
		},
		Run: func(_ context.Context, inputs map[string]any, _ *plugin.RunContext) (map[string]any, error) {
			return map[string]any{"sum_output": asFloat(inputs["num1"]) + asFloat(inputs["num2"])}, nil
		},
	})

	reg.Register(&plugin.Descriptor{
		ID:     "emit",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", DataType: plugin.DataTypeNumber},
		},
		Run: func(_ context.Context, _ map[string]any, rc *plugin.RunContext) (map[string]any, error) {
			return map[string]any{"output": rc.NodeData["value"]}, nil
		},
	})

	return reg
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// runWorkflow выполняет workflow и возвращает финальный run.
func runWorkflow(t *testing.T, reg *plugin.Registry, wf *domain.Workflow, payload map[string]any, cfg Config) (*domain.Run, *captureSink) {
	t.Helper()

	sink := &captureSink{}
	cfg.Registry = reg
	if cfg.Sink == nil {
		cfg.Sink = sink
	} else {
		sink = cfg.Sink.(*captureSink)
	}
	cfg.Logger = slog.Default()

	graph, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	run := domain.NewRun(wf)
	run.MarkRunning()
	ec := NewExecContext(run, graph, payload)

	NewWalker(cfg).Execute(context.Background(), ec, wf.Nodes[0].ID)
	return ec.Snapshot(), sink
}

func TestWalker_LinearFlow(t *testing.T) {
	reg := newTestRegistry(t)

	wf := &domain.Workflow{
		ID: "wf-adder",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "v", Type: "emit", Data: map[string]any{"value": float64(40)}},
			{ID: "a", Type: "adder"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "v"},
			{ID: "e2", Source: "v", SourceHandle: "output", Target: "a", TargetHandle: "num1"},
		},
	}

	run, sink := runWorkflow(t, reg, wf, map[string]any{"seed": 1}, Config{})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %+v)", run.Status, run.Error)
	}

	// Выходы лежат под ключами "<nodeID>.<portID>"
	if got := run.ContextData["a.sum_output"]; got != float64(40) {
		t.Errorf("a.sum_output = %v, want 40", got)
	}
	if _, ok := run.ContextData["t.output"]; !ok {
		t.Error("trigger output missing from context data")
	}

	if r := sink.byNode("a"); r == nil || r.Status != domain.StepStatusSuccess {
		t.Errorf("adder step result = %+v, want success", r)
	}
}

func TestWalker_DiamondExactlyOnce(t *testing.T) {
	reg := newTestRegistry(t)

	var count atomic.Int32
	reg.Register(&plugin.Descriptor{
		ID:     "counting",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Outputs: []plugin.PortDescriptor{
			{ID: "output"},
		},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			count.Add(1)
			return map[string]any{"output": "done"}, nil
		},
	})

	// Ромб: t → a → c, t → b → c
	wf := &domain.Workflow{
		ID: "wf-diamond",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "a", Type: "emit", Data: map[string]any{"value": 1}},
			{ID: "b", Type: "emit", Data: map[string]any{"value": 2}},
			{ID: "c", Type: "counting"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "a"},
			{ID: "e2", Source: "t", Target: "b"},
			{ID: "e3", Source: "a", Target: "c"},
			{ID: "e4", Source: "b", Target: "c"},
		},
	}

	run, _ := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", run.Status)
	}
	if got := count.Load(); got != 1 {
		t.Errorf("converging node executed %d times, want exactly once", got)
	}
}

func TestWalker_PluginNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	wf := &domain.Workflow{
		ID: "wf-missing",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "x", Type: "no_such_plugin"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "x"},
		},
	}

	run, _ := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", run.Status)
	}
	if run.Error == nil {
		t.Fatal("run error is nil")
	}
	want := "Plugin not found for node type: no_such_plugin"
	if run.Error.Message != want {
		t.Errorf("error message = %q, want %q", run.Error.Message, want)
	}
	if run.Error.NodeID != "x" {
		t.Errorf("error node = %q, want x", run.Error.NodeID)
	}
}

func TestWalker_NodeFailureStopsAndSkips(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register(&plugin.Descriptor{
		ID:      "failing",
		Inputs:  []plugin.PortDescriptor{{ID: "input"}},
		Outputs: []plugin.PortDescriptor{{ID: "output"}},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			return nil, errBoom
		},
	})

	wf := &domain.Workflow{
		ID: "wf-fail",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "f", Type: "failing"},
			{ID: "after", Type: "emit"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "f"},
			{ID: "e2", Source: "f", Target: "after"},
		},
	}

	run, sink := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", run.Status)
	}
	if run.Error == nil || run.Error.NodeID != "f" {
		t.Errorf("run error = %+v, want node f", run.Error)
	}

	statuses := sink.statuses()
	if statuses["f"] != domain.StepStatusError {
		t.Errorf("failing node step = %s, want error", statuses["f"])
	}
	if statuses["after"] != domain.StepStatusSkipped {
		t.Errorf("downstream node step = %s, want skipped", statuses["after"])
	}
	if statuses["t"] != domain.StepStatusSuccess {
		t.Errorf("executed node step = %s, want success", statuses["t"])
	}
}

func TestWalker_Timeout(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register(&plugin.Descriptor{
		ID:      "hang",
		Inputs:  []plugin.PortDescriptor{{ID: "input"}},
		Timeout: 30 * time.Millisecond,
		Run: func(ctx context.Context, _ map[string]any, _ *plugin.RunContext) (map[string]any, error) {
			// Игнорирует контекст намеренно: таймаут навязывает движок
			time.Sleep(2 * time.Second)
			return nil, nil
		},
	})

	wf := &domain.Workflow{
		ID: "wf-hang",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "h", Type: "hang"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "h"},
		},
	}

	start := time.Now()
	run, _ := runWorkflow(t, reg, wf, nil, Config{})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("walker waited %v, timeout not enforced", elapsed)
	}
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", run.Status)
	}
	if run.Error == nil || !strings.Contains(run.Error.Message, "timeout") {
		t.Errorf("error = %+v, want timeout message", run.Error)
	}
}

func TestWalker_PanicRecovered(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Register(&plugin.Descriptor{
		ID:     "panicky",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			panic("boom")
		},
	})

	wf := &domain.Workflow{
		ID: "wf-panic",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "p", Type: "panicky"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "p"},
		},
	}

	run, _ := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", run.Status)
	}
	if run.Error == nil || !strings.Contains(run.Error.Message, "plugin panic") {
		t.Errorf("error = %+v, want plugin panic", run.Error)
	}
}

func TestWalker_RetrySucceeds(t *testing.T) {
	reg := newTestRegistry(t)

	var attempts atomic.Int32
	reg.Register(&plugin.Descriptor{
		ID:        "flaky",
		Inputs:    []plugin.PortDescriptor{{ID: "input"}},
		Outputs:   []plugin.PortDescriptor{{ID: "output"}},
		Retryable: true,
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			if attempts.Add(1) < 3 {
				return nil, errBoom
			}
			return map[string]any{"output": "ok"}, nil
		},
	})

	wf := &domain.Workflow{
		ID: "wf-flaky",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "f", Type: "flaky"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "f"},
		},
	}

	run, sink := runWorkflow(t, reg, wf, nil, Config{RetryBaseDelay: time.Millisecond})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %+v)", run.Status, run.Error)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if r := sink.byNode("f"); r == nil || r.Attempt != 3 {
		t.Errorf("step attempt = %+v, want 3", r)
	}
}

func TestWalker_NotRetryableFailsFast(t *testing.T) {
	reg := newTestRegistry(t)

	var attempts atomic.Int32
	reg.Register(&plugin.Descriptor{
		ID:     "once",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			attempts.Add(1)
			return nil, errBoom
		},
	})

	wf := &domain.Workflow{
		ID: "wf-once",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "o", Type: "once"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "o"},
		},
	}

	run, _ := runWorkflow(t, reg, wf, nil, Config{RetryBaseDelay: time.Millisecond})

	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s, want FAILED", run.Status)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retry for non-retryable)", got)
	}
}

func TestWalker_Cancellation(t *testing.T) {
	reg := newTestRegistry(t)

	started := make(chan struct{})
	reg.Register(&plugin.Descriptor{
		ID:     "blocking",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Run: func(ctx context.Context, _ map[string]any, _ *plugin.RunContext) (map[string]any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	wf := &domain.Workflow{
		ID: "wf-cancel",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "b", Type: "blocking"},
			{ID: "after", Type: "emit"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "b"},
			{ID: "e2", Source: "b", Target: "after"},
		},
	}

	graph, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	sink := &captureSink{}
	run := domain.NewRun(wf)
	run.MarkRunning()
	ec := NewExecContext(run, graph, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	NewWalker(Config{Registry: reg, Sink: sink, Logger: slog.Default()}).Execute(ctx, ec, "t")

	snap := ec.Snapshot()
	if snap.Status != domain.RunStatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", snap.Status)
	}
	if sink.statuses()["after"] != domain.StepStatusSkipped {
		t.Errorf("unexecuted node step = %s, want skipped", sink.statuses()["after"])
	}
}

func TestWalker_UnreachableNodeNotExecuted(t *testing.T) {
	reg := newTestRegistry(t)

	wf := &domain.Workflow{
		ID: "wf-island",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "a", Type: "emit", Data: map[string]any{"value": 1}},
			{ID: "island", Type: "emit", Data: map[string]any{"value": 2}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "a"},
		},
	}

	run, sink := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", run.Status)
	}
	if _, ok := run.ContextData["island.output"]; ok {
		t.Error("unreachable node must not execute")
	}
	if r := sink.byNode("island"); r != nil {
		t.Errorf("unreachable node emitted step result %+v", r)
	}
}

func TestWalker_CycleDrainsQueue(t *testing.T) {
	reg := newTestRegistry(t)

	// t → a → b → a: участники цикла никогда не готовы
	wf := &domain.Workflow{
		ID: "wf-cycle",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "a", Type: "emit", Data: map[string]any{"value": 1}},
			{ID: "b", Type: "emit", Data: map[string]any{"value": 2}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "a"},
			{ID: "e2", Source: "a", Target: "b"},
			{ID: "e3", Source: "b", Target: "a"},
		},
	}

	done := make(chan struct{})
	var run *domain.Run
	go func() {
		defer close(done)
		run, _ = runWorkflow(t, reg, wf, nil, Config{})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("walker did not terminate on cyclic graph")
	}

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", run.Status)
	}
	if _, ok := run.ContextData["a.output"]; ok {
		t.Error("cycle member must not execute")
	}
	if _, ok := run.ContextData["t.output"]; !ok {
		t.Error("entry node must execute")
	}
}

func TestWalker_MissingUpstreamInputOmitted(t *testing.T) {
	reg := newTestRegistry(t)

	var seen map[string]any
	reg.Register(&plugin.Descriptor{
		ID:     "inspect",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Run: func(_ context.Context, inputs map[string]any, _ *plugin.RunContext) (map[string]any, error) {
			seen = inputs
			return map[string]any{}, nil
		},
	})

	// Ребро ссылается на порт, который trigger не публикует
	wf := &domain.Workflow{
		ID: "wf-missing-port",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "i", Type: "inspect"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", SourceHandle: "no_such_port", Target: "i"},
		},
	}

	run, _ := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", run.Status)
	}
	if len(seen) != 0 {
		t.Errorf("inputs = %v, want omitted missing value", seen)
	}
}

func TestWalker_PortTypesNotEnforced(t *testing.T) {
	reg := newTestRegistry(t)

	// Типы портов декларативны: несовпадение string → number не
	// проверяется движком, значение доставляется как есть
	var received any
	reg.Register(&plugin.Descriptor{
		ID: "labeler",
		Inputs: []plugin.PortDescriptor{
			{ID: "input"},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "label", DataType: plugin.DataTypeString},
		},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			return map[string]any{"label": "forty"}, nil
		},
	})
	reg.Register(&plugin.Descriptor{
		ID: "numeric",
		Inputs: []plugin.PortDescriptor{
			{ID: "n", DataType: plugin.DataTypeNumber},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", DataType: plugin.DataTypeAny},
		},
		Run: func(_ context.Context, inputs map[string]any, _ *plugin.RunContext) (map[string]any, error) {
			received = inputs["n"]
			return map[string]any{"output": inputs["n"]}, nil
		},
	})

	wf := &domain.Workflow{
		ID: "wf-typed",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
			{ID: "l", Type: "labeler"},
			{ID: "n", Type: "numeric"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t", Target: "l"},
			{ID: "e2", Source: "l", SourceHandle: "label", Target: "n", TargetHandle: "n"},
		},
	}

	run, sink := runWorkflow(t, reg, wf, nil, Config{})

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED (error: %+v)", run.Status, run.Error)
	}
	if received != "forty" {
		t.Errorf("numeric node received %v, want the string passed through untouched", received)
	}
	if got := run.ContextData["n.output"]; got != "forty" {
		t.Errorf("n.output = %v, want forty", got)
	}
	if r := sink.byNode("n"); r == nil || r.Status != domain.StepStatusSuccess {
		t.Errorf("numeric step result = %+v, want success", r)
	}
}
