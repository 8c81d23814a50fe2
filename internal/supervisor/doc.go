// Package supervisor управляет жизненным циклом runs.
//
// Supervisor создаёт run из Workflow, находит trigger-узел, отдаёт
// обход движку и ведёт таблицу активных runs: статус, отмена,
// retention завершённых runs в памяти. Поддерживает синхронный
// (StartWorkflow) и асинхронный (Submit) запуск.
package supervisor
