// Package sink — внешние приёмники результатов выполнения.
//
// Движок эмитит StepResult на каждое выполнение узла и финальный Run
// при завершении; sink'и решают, куда это девать: структурированный
// лог (Slog), архив в Postgres (Archive) или несколько приёмников
// сразу (Fanout).
package sink
