// Package httpapi — HTTP API движка.
//
// Запуск и опрос runs, палитра плагинов, cron-расписания и
// webhook-привязки. Маршрутизация на стандартном ServeMux
// с паттернами методов, ответы в JSON-конвертах {"data": ...} и
// {"error": {...}}.
package httpapi
