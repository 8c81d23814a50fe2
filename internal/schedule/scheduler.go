package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Conductor/internal/domain"
)

// defaultTickInterval — период опроса расписаний.
const defaultTickInterval = 15 * time.Second

// Ошибки планировщика.
var (
	// ErrScheduleNotFound — schedule с указанным ID не зарегистрирован.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrNilWorkflow — schedule без снимка workflow.
	ErrNilWorkflow = errors.New("schedule has no workflow")
)

// Launcher запускает workflow асинхронно. Реализуется Supervisor'ом.
type Launcher interface {
	Submit(wf *domain.Workflow, payload map[string]any) *domain.Run
}

// Scheduler запускает workflow по cron-расписаниям.
//
// Расписания живут в памяти процесса. Каждый тик находит due
// schedules, отдаёт их workflow Launcher'у и пересчитывает NextDueAt.
// Ошибка одного schedule не блокирует остальные.
type Scheduler struct {
	launcher Launcher
	logger   *slog.Logger
	interval time.Duration

	mu        sync.RWMutex
	schedules map[uuid.UUID]*domain.Schedule

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// Config — конфигурация Scheduler.
type Config struct {
	// Launcher — куда отдавать due workflows (обязателен).
	Launcher Launcher

	// Logger — логгер.
	Logger *slog.Logger

	// TickInterval — период опроса расписаний (default: 15s).
	TickInterval time.Duration
}

// New создаёт Scheduler. Цикл тиков запускается отдельно через Start.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	return &Scheduler{
		launcher:  cfg.Launcher,
		logger:    logger,
		interval:  interval,
		schedules: make(map[uuid.UUID]*domain.Schedule),
		stopCh:    make(chan struct{}),
	}
}

// Add регистрирует schedule. Валидирует cron-выражение и вычисляет
// первое время запуска.
func (s *Scheduler) Add(sched *domain.Schedule) error {
	if sched.Workflow == nil {
		return ErrNilWorkflow
	}
	if err := ValidateCronExpr(sched.CronExpr); err != nil {
		return err
	}

	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	if sched.CreatedAt.IsZero() {
		sched.CreatedAt = time.Now().UTC()
	}

	next, err := NextDue(sched.CronExpr, sched.Timezone, time.Now())
	if err != nil {
		return err
	}
	sched.NextDueAt = next

	s.mu.Lock()
	s.schedules[sched.ID] = sched
	s.mu.Unlock()

	s.logger.Info("schedule added",
		"schedule_id", sched.ID,
		"workflow_id", sched.Workflow.ID,
		"cron", sched.CronExpr,
		"next_due_at", next,
	)
	return nil
}

// Remove удаляет schedule.
func (s *Scheduler) Remove(scheduleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[scheduleID]; !ok {
		return ErrScheduleNotFound
	}
	delete(s.schedules, scheduleID)

	s.logger.Info("schedule removed", "schedule_id", scheduleID)
	return nil
}

// List возвращает снимок всех зарегистрированных schedules.
func (s *Scheduler) List() []*domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*domain.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		list = append(list, sched)
	}
	return list
}

// Start запускает цикл тиков. Останавливается через Stop или отмену ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", "tick_interval", s.interval)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case now := <-ticker.C:
				s.Tick(now)
			}
		}
	}()
}

// Stop останавливает цикл тиков и дожидается его завершения.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Tick обрабатывает все due schedules на момент now.
// Возвращает количество созданных runs.
func (s *Scheduler) Tick(now time.Time) int {
	due := s.dueSchedules(now)
	if len(due) == 0 {
		return 0
	}

	created := 0
	for _, sched := range due {
		if err := s.fire(sched, now); err != nil {
			s.logger.Error("failed to fire schedule",
				"schedule_id", sched.ID,
				"error", err,
			)
			continue
		}
		created++
	}

	s.logger.Debug("scheduler tick completed", "due", len(due), "runs_created", created)
	return created
}

// dueSchedules возвращает schedules, которым пора запускаться.
func (s *Scheduler) dueSchedules(now time.Time) []*domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.Schedule
	for _, sched := range s.schedules {
		if sched.IsDue(now) {
			due = append(due, sched)
		}
	}
	return due
}

// fire запускает workflow одного schedule и пересчитывает NextDueAt.
func (s *Scheduler) fire(sched *domain.Schedule, now time.Time) error {
	payload := map[string]any{
		"schedule_id":  sched.ID.String(),
		"scheduled_at": sched.NextDueAt.UTC().Format(time.RFC3339),
	}

	run := s.launcher.Submit(sched.Workflow, payload)

	next, err := NextDue(sched.CronExpr, sched.Timezone, now)
	if err != nil {
		// Выражение стало невалидным — выключаем, чтобы не молотить
		// каждый тик
		s.mu.Lock()
		sched.Enabled = false
		s.mu.Unlock()
		return err
	}

	firedAt := now.UTC()
	s.mu.Lock()
	sched.LastRunID = run.ID
	sched.LastRunAt = &firedAt
	sched.NextDueAt = next
	s.mu.Unlock()

	s.logger.Info("schedule fired",
		"schedule_id", sched.ID,
		"run_id", run.ID,
		"next_due_at", next,
	)
	return nil
}
