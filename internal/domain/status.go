package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          RUNNING → PAUSED → RUNNING
//	          (или) → CANCELLED (из PENDING, RUNNING или PAUSED)
type RunStatus string

const (
	// RunStatusPending — run создан, выполнение ещё не началось.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted — обход достижимого подграфа завершён без ошибок.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed — run завершился с ошибкой (структурной или ошибкой узла).
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusPaused — run приостановлен оператором.
	RunStatusPaused RunStatus = "PAUSED"

	// RunStatusCancelled — run отменён оператором до завершения.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// StepStatus — статус выполнения одного узла.
type StepStatus string

const (
	// StepStatusSuccess — узел выполнен, outputs записаны в contextData.
	StepStatusSuccess StepStatus = "success"

	// StepStatusError — run-функция узла вернула ошибку.
	StepStatusError StepStatus = "error"

	// StepStatusSkipped — узел был достижим, но не выполнен
	// (выполнение прервано ошибкой или отменой выше по графу).
	StepStatusSkipped StepStatus = "skipped"
)
