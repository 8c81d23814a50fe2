// Package builtin — встроенные типы узлов движка.
//
// Триггеры (trigger, webhook_trigger, cron_trigger), HTTP запрос,
// трансформация данных, задержка, пользовательский скрипт и LLM агент.
// Каждый тип регистрируется в plugin.Registry через RegisterAll.
package builtin
