package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"every minute", "* * * * *", false},
		{"hourly", "0 * * * *", false},
		{"weekdays at nine", "0 9 * * 1-5", false},
		{"empty", "", true},
		{"too few fields", "* * *", true},
		{"garbage", "not a cron", true},
		{"six fields", "0 0 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCronExpr(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestNextDue(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	next, err := NextDue("0 * * * *", "", from)
	if err != nil {
		t.Fatalf("NextDue() error = %v", err)
	}

	want := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextDue() = %v, want %v", next, want)
	}
}

func TestNextDue_Timezone(t *testing.T) {
	// 23:30 UTC = 01:30 следующего дня в Хельсинки (UTC+2 зимой)
	from := time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC)

	next, err := NextDue("0 9 * * *", "Europe/Helsinki", from)
	if err != nil {
		t.Fatalf("NextDue() error = %v", err)
	}

	// 09:00 по Хельсинки 16 января = 07:00 UTC
	want := time.Date(2025, 1, 16, 7, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextDue() = %v, want %v", next, want)
	}
}

func TestNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	from := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	next, err := NextDue("0 12 * * *", "Not/AZone", from)
	if err != nil {
		t.Fatalf("NextDue() error = %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("NextDue() = %v, want %v", next, want)
	}
}

// fakeLauncher записывает переданные workflows.
type fakeLauncher struct {
	mu      sync.Mutex
	submits []map[string]any
}

func (f *fakeLauncher) Submit(wf *domain.Workflow, payload map[string]any) *domain.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, payload)
	return domain.NewRun(wf)
}

func (f *fakeLauncher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

func testWorkflow() *domain.Workflow {
	return &domain.Workflow{
		ID:   "wf-1",
		Name: "test",
		Nodes: []domain.Node{
			{ID: "t", Type: "trigger"},
		},
	}
}

func TestScheduler_AddValidates(t *testing.T) {
	s := New(Config{Launcher: &fakeLauncher{}})

	if err := s.Add(&domain.Schedule{Workflow: testWorkflow(), CronExpr: "bad"}); err == nil {
		t.Error("Add() with invalid cron must fail")
	}
	if err := s.Add(&domain.Schedule{CronExpr: "* * * * *"}); err != ErrNilWorkflow {
		t.Errorf("Add() without workflow error = %v, want ErrNilWorkflow", err)
	}

	sched := &domain.Schedule{Workflow: testWorkflow(), CronExpr: "* * * * *", Enabled: true}
	if err := s.Add(sched); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if sched.ID == uuid.Nil {
		t.Error("Add() must assign an ID")
	}
	if sched.NextDueAt.IsZero() {
		t.Error("Add() must compute NextDueAt")
	}
	if len(s.List()) != 1 {
		t.Errorf("List() len = %d, want 1", len(s.List()))
	}
}

func TestScheduler_TickFiresDue(t *testing.T) {
	launcher := &fakeLauncher{}
	s := New(Config{Launcher: launcher})

	sched := &domain.Schedule{Workflow: testWorkflow(), CronExpr: "* * * * *", Enabled: true}
	if err := s.Add(sched); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Тик до NextDueAt — ничего не запускается
	if created := s.Tick(sched.NextDueAt.Add(-time.Second)); created != 0 {
		t.Errorf("Tick() before due = %d runs, want 0", created)
	}

	// Тик после NextDueAt — запускается ровно один run
	due := sched.NextDueAt
	if created := s.Tick(due.Add(time.Second)); created != 1 {
		t.Errorf("Tick() at due = %d runs, want 1", created)
	}
	if launcher.count() != 1 {
		t.Fatalf("launcher received %d submits, want 1", launcher.count())
	}

	payload := launcher.submits[0]
	if payload["schedule_id"] != sched.ID.String() {
		t.Errorf("payload.schedule_id = %v, want %v", payload["schedule_id"], sched.ID)
	}
	if payload["scheduled_at"] == "" {
		t.Error("payload.scheduled_at must be set")
	}

	if !sched.NextDueAt.After(due) {
		t.Errorf("NextDueAt not advanced: %v", sched.NextDueAt)
	}
	if sched.LastRunAt == nil {
		t.Error("LastRunAt must be set after firing")
	}
}

func TestScheduler_DisabledNotFired(t *testing.T) {
	launcher := &fakeLauncher{}
	s := New(Config{Launcher: launcher})

	sched := &domain.Schedule{Workflow: testWorkflow(), CronExpr: "* * * * *", Enabled: false}
	if err := s.Add(sched); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if created := s.Tick(time.Now().Add(24 * time.Hour)); created != 0 {
		t.Errorf("Tick() on disabled schedule = %d runs, want 0", created)
	}
}

func TestScheduler_Remove(t *testing.T) {
	s := New(Config{Launcher: &fakeLauncher{}})

	if err := s.Remove(uuid.New()); err != ErrScheduleNotFound {
		t.Errorf("Remove() unknown error = %v, want ErrScheduleNotFound", err)
	}

	sched := &domain.Schedule{Workflow: testWorkflow(), CronExpr: "* * * * *"}
	if err := s.Add(sched); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Remove(sched.ID); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("schedule still listed after Remove")
	}
}
