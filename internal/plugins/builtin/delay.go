package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Conductor/internal/plugin"
)

// TypeDelay — тип узла задержки.
const TypeDelay = "delay"

// Ключи конфигурации delay.
const (
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// NewDelay возвращает дескриптор узла задержки.
//
// Приостанавливает путь выполнения на указанное время и пробрасывает
// вход дальше. Отмена run прерывает ожидание немедленно.
func NewDelay() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeDelay,
		Name:        "Delay",
		Description: "Pauses the execution path for a fixed duration.",
		Category:    CategoryCore,
		Inputs: []plugin.PortDescriptor{
			{ID: "input", Name: "Input", DataType: plugin.DataTypeAny},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeAny, Description: "Input passed through"},
			{ID: "duration_ms", Name: "Duration (ms)", DataType: plugin.DataTypeNumber},
		},
		ConfigFields: []plugin.ConfigField{
			{Name: configDurationSec, Label: "Duration (sec)", Type: "number"},
			{Name: configDurationMs, Label: "Duration (ms)", Type: "number"},
		},
		// Задержка дольше дефолтного таймаута узла должна
		// переживать его: таймаут задаём щедрый.
		Timeout: time.Hour,
		Run:     runDelay,
	}
}

// runDelay выполняет задержку с уважением к отмене.
func runDelay(ctx context.Context, inputs map[string]any, rc *plugin.RunContext) (map[string]any, error) {
	duration, err := parseDelayDuration(rc.NodeData)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return map[string]any{
		"output":      inputs["input"],
		"duration_ms": duration.Milliseconds(),
	}, nil
}

// parseDelayDuration извлекает длительность из конфигурации.
func parseDelayDuration(config map[string]any) (time.Duration, error) {
	if sec := getInt(config, configDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms := getInt(config, configDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidConfig, TypeDelay)
}
