// Package schedule запускает workflows по cron-расписаниям.
//
// Scheduler держит расписания в памяти, тикает с фиксированным
// интервалом и отдаёт due workflows асинхронному Launcher'у.
// Cron-выражения — стандартные 5-полевые, с поддержкой IANA timezone.
package schedule
