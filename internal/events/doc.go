// Package events публикует события жизненного цикла run в RabbitMQ.
//
// Topic exchange conductor.events, routing keys run.started,
// run.finished и step.finished. Publisher реализует sink.Sink и
// подключается к движку через sink.Fanout. Поток best-effort:
// недоступный брокер не мешает выполнению workflow.
package events
