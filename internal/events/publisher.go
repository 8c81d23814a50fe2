package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Conductor/internal/domain"
)

// Exchange — topic exchange для событий движка.
const Exchange = "conductor.events"

// Routing keys событий.
const (
	RoutingKeyRunStarted   = "run.started"
	RoutingKeyRunFinished  = "run.finished"
	RoutingKeyStepFinished = "step.finished"
)

// publishTimeout — таймаут одной публикации.
const publishTimeout = 5 * time.Second

// Event — событие жизненного цикла run.
type Event struct {
	// ID — уникальный идентификатор события.
	ID string `json:"id"`

	// Type — routing key события.
	Type string `json:"type"`

	// Payload — полезная нагрузка (Run или StepResult).
	Payload any `json:"payload"`

	// Timestamp — время создания события.
	Timestamp time.Time `json:"timestamp"`
}

// Publisher публикует события жизненного цикла run в RabbitMQ.
//
// Потребители — внешние дашборды и панели логов, которым push
// удобнее, чем опрос getRunStatus.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher и объявляет exchange.
func NewPublisher(conn *Connection, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	err := conn.WithChannel(func(ch *amqp.Channel) error {
		return ch.ExchangeDeclare(
			Exchange, // name
			"topic",  // kind
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		)
	})
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}

	return &Publisher{conn: conn, logger: logger}, nil
}

// publish сериализует и публикует событие. Ошибки логируются:
// поток событий best-effort и не влияет на выполнение run.
func (p *Publisher) publish(routingKey string, payload any) {
	event := &Event{
		ID:        uuid.New().String(),
		Type:      routingKey,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", "type", routingKey, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.conn.WithChannel(func(ch *amqp.Channel) error {
		return ch.PublishWithContext(
			ctx,
			Exchange,
			routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.ID,
				Timestamp:    event.Timestamp,
				Body:         body,
			},
		)
	})
	if err != nil {
		p.logger.Warn("publish event failed", "type", routingKey, "error", err)
		return
	}

	p.logger.Debug("event published", "type", routingKey, "event_id", event.ID)
}

// RunStarted публикует событие о запуске run.
func (p *Publisher) RunStarted(run *domain.Run) {
	p.publish(RoutingKeyRunStarted, run)
}

// RunFinished публикует событие о завершении run.
// Реализует sink.Sink.
func (p *Publisher) RunFinished(run *domain.Run) {
	p.publish(RoutingKeyRunFinished, run)
}

// Step публикует результат выполнения узла.
// Реализует sink.Sink.
func (p *Publisher) Step(result *domain.StepResult) {
	p.publish(RoutingKeyStepFinished, result)
}
