package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
	"github.com/shaiso/Conductor/internal/plugin"
)

func TestBuildGraph_Validation(t *testing.T) {
	tests := []struct {
		name    string
		wf      *domain.Workflow
		wantErr error
	}{
		{
			name:    "nil workflow",
			wf:      nil,
			wantErr: ErrNoNodes,
		},
		{
			name:    "no nodes",
			wf:      &domain.Workflow{ID: "w"},
			wantErr: ErrNoNodes,
		},
		{
			name: "empty node id",
			wf: &domain.Workflow{
				Nodes: []domain.Node{{ID: "", Type: "trigger"}},
			},
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "empty node type",
			wf: &domain.Workflow{
				Nodes: []domain.Node{{ID: "a", Type: ""}},
			},
			wantErr: ErrEmptyNodeType,
		},
		{
			name: "duplicate node id",
			wf: &domain.Workflow{
				Nodes: []domain.Node{
					{ID: "a", Type: "trigger"},
					{ID: "a", Type: "trigger"},
				},
			},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name: "dangling edge source",
			wf: &domain.Workflow{
				Nodes: []domain.Node{{ID: "a", Type: "trigger"}},
				Edges: []domain.Edge{{ID: "e1", Source: "ghost", Target: "a"}},
			},
			wantErr: ErrDanglingEdge,
		},
		{
			name: "dangling edge target",
			wf: &domain.Workflow{
				Nodes: []domain.Node{{ID: "a", Type: "trigger"}},
				Edges: []domain.Edge{{ID: "e1", Source: "a", Target: "ghost"}},
			},
			wantErr: ErrDanglingEdge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(tt.wf)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildGraph() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildGraph_Index(t *testing.T) {
	wf := &domain.Workflow{
		ID: "w",
		Nodes: []domain.Node{
			{ID: "a", Type: "trigger"},
			{ID: "b", Type: "x"},
			{ID: "c", Type: "x"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "a", Target: "c"},
			{ID: "e3", Source: "b", Target: "c"},
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
	if len(g.Outgoing("a")) != 2 {
		t.Errorf("Outgoing(a) = %d edges, want 2", len(g.Outgoing("a")))
	}
	if len(g.Incoming("c")) != 2 {
		t.Errorf("Incoming(c) = %d edges, want 2", len(g.Incoming("c")))
	}
	if _, ok := g.Node("b"); !ok {
		t.Error("Node(b) not found")
	}
}

func TestGraph_Reachable(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "a", Type: "x"},
			{ID: "b", Type: "x"},
			{ID: "c", Type: "x"},
			{ID: "island", Type: "x"},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "c"},
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	reachable := g.Reachable("a")
	for _, id := range []string{"a", "b", "c"} {
		if !reachable[id] {
			t.Errorf("Reachable(a) missing %s", id)
		}
	}
	if reachable["island"] {
		t.Error("Reachable(a) must not include disconnected node")
	}
}

func TestGraph_Triggers(t *testing.T) {
	reg := plugin.NewRegistry(slog.Default())
	reg.Register(&plugin.Descriptor{
		ID: "trigger",
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			return nil, nil
		},
	})
	reg.Register(&plugin.Descriptor{
		ID:     "worker",
		Inputs: []plugin.PortDescriptor{{ID: "input"}},
		Run: func(context.Context, map[string]any, *plugin.RunContext) (map[string]any, error) {
			return nil, nil
		},
	})

	wf := &domain.Workflow{
		Nodes: []domain.Node{
			{ID: "w1", Type: "worker"},
			{ID: "t1", Type: "trigger"},
			{ID: "t2", Type: "trigger"},
			{ID: "unknown", Type: "ghost"},
		},
	}

	g, err := BuildGraph(wf)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	triggers := g.Triggers(reg)
	if len(triggers) != 2 {
		t.Fatalf("Triggers() = %d nodes, want 2", len(triggers))
	}
	// Порядок массива узлов сохраняется
	if triggers[0].ID != "t1" || triggers[1].ID != "t2" {
		t.Errorf("Triggers() order = %s, %s, want t1, t2", triggers[0].ID, triggers[1].ID)
	}
}
