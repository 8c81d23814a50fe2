// Package telemetry — настройка логирования и метрик.
//
// Логирование строится на log/slog с JSON-выводом по умолчанию,
// метрики — на prometheus. Конфигурация через переменные окружения
// LOG_LEVEL и LOG_FORMAT.
package telemetry
