// Package cli содержит команды conductor-cli: клиент Conductor API,
// форматирование вывода (таблицы/JSON) и cobra-команды run, plugin,
// schedule и hook.
//
// Типы запросов и ответов продублированы из internal/httpapi, чтобы CLI
// не тянул серверные зависимости.
package cli
