package builtin

import (
	"context"
	"time"

	"github.com/shaiso/Conductor/internal/plugin"
)

// Типы trigger-узлов.
const (
	TypeTrigger        = "trigger"
	TypeWebhookTrigger = "webhook_trigger"
	TypeCronTrigger    = "cron_trigger"
)

// NewTrigger возвращает дескриптор базового триггера — точки входа
// workflow при ручном запуске.
//
// Триггер не объявляет входных портов: именно это делает узел
// триггером с точки зрения движка. Run пробрасывает полезную
// нагрузку запуска в выходной порт output.
func NewTrigger() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeTrigger,
		Name:        "Trigger",
		Description: "Entry point of a workflow. Emits the run payload.",
		Category:    CategoryCore,
		Inputs:      nil,
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeAny, Description: "Run payload"},
		},
		Run: func(_ context.Context, _ map[string]any, rc *plugin.RunContext) (map[string]any, error) {
			payload := rc.TriggerPayload
			if payload == nil {
				payload = make(map[string]any)
			}
			return map[string]any{
				"output": payload,
			}, nil
		},
	}
}

// NewWebhookTrigger возвращает дескриптор webhook-триггера.
//
// Запускается входящим HTTP-запросом; тело запроса доступно в порту
// body, полный payload — в порту output.
func NewWebhookTrigger() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeWebhookTrigger,
		Name:        "Webhook Trigger",
		Description: "Starts the workflow from an incoming HTTP request.",
		Category:    CategoryCore,
		Inputs:      nil,
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeAny, Description: "Full webhook payload"},
			{ID: "body", Name: "Body", DataType: plugin.DataTypeObject, Description: "Request body"},
		},
		Run: func(_ context.Context, _ map[string]any, rc *plugin.RunContext) (map[string]any, error) {
			payload := rc.TriggerPayload
			if payload == nil {
				payload = make(map[string]any)
			}

			body := payload["body"]
			if body == nil {
				body = payload
			}

			return map[string]any{
				"output": payload,
				"body":   body,
			}, nil
		},
	}
}

// NewCronTrigger возвращает дескриптор cron-триггера.
//
// Само расписание исполняет scheduler; узел лишь отдаёт время
// срабатывания downstream-узлам.
func NewCronTrigger() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeCronTrigger,
		Name:        "Cron Trigger",
		Description: "Starts the workflow on a cron schedule.",
		Category:    CategoryCore,
		Inputs:      nil,
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeAny, Description: "Schedule payload"},
			{ID: "fired_at", Name: "Fired At", DataType: plugin.DataTypeString, Description: "Trigger time, RFC 3339"},
		},
		DefaultData: map[string]any{
			"cron": "0 * * * *",
		},
		ConfigFields: []plugin.ConfigField{
			{Name: "cron", Label: "Cron expression", Type: "string", Placeholder: "0 * * * *"},
		},
		Run: func(_ context.Context, _ map[string]any, rc *plugin.RunContext) (map[string]any, error) {
			payload := rc.TriggerPayload
			if payload == nil {
				payload = make(map[string]any)
			}

			firedAt := time.Now().UTC().Format(time.RFC3339)
			if v, ok := payload["scheduled_at"].(string); ok && v != "" {
				firedAt = v
			}

			return map[string]any{
				"output":   payload,
				"fired_at": firedAt,
			}, nil
		},
	}
}
