package domain

import "time"

// StepResult — результат одного выполнения узла.
//
// Создаётся walker'ом ровно один раз на выполнение узла и отдаётся
// внешнему приёмнику логов (sink). Как результаты хранятся и
// отображаются — забота приёмника, не движка.
type StepResult struct {
	// RunID — run, в рамках которого выполнялся узел.
	RunID string `json:"run_id"`

	// NodeID — ID выполненного узла.
	NodeID string `json:"node_id"`

	// NodeType — тип узла (plugin id), для фильтрации в логах.
	NodeType string `json:"node_type,omitempty"`

	// Status — итог выполнения: success, error или skipped.
	Status StepStatus `json:"status"`

	// Attempt — номер попытки (начиная с 1). Больше 1 только для
	// retryable-плагинов.
	Attempt int `json:"attempt,omitempty"`

	// StartedAt — время начала выполнения узла.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt — время завершения.
	CompletedAt time.Time `json:"completed_at"`

	// Inputs — фактические входы, переданные в run-функцию узла.
	Inputs map[string]any `json:"inputs,omitempty"`

	// Outputs — выходы узла при успехе, ключи — ID выходных портов.
	Outputs map[string]any `json:"outputs,omitempty"`

	// Error — текст ошибки при Status == error.
	Error string `json:"error,omitempty"`
}

// DurationMS возвращает длительность выполнения в миллисекундах.
func (s *StepResult) DurationMS() int64 {
	return s.CompletedAt.Sub(s.StartedAt).Milliseconds()
}
