package builtin

import (
	"errors"
	"log/slog"

	"github.com/shaiso/Conductor/internal/plugin"
)

// Ошибки встроенных плагинов.
var (
	// ErrInvalidConfig — некорректная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")
)

// Категории палитры редактора.
const (
	CategoryCore = "Core"
	CategoryData = "Data"
	CategoryAI   = "AI"
)

// RegisterAll регистрирует все встроенные типы узлов.
func RegisterAll(reg *plugin.Registry, logger *slog.Logger) error {
	descriptors := []*plugin.Descriptor{
		NewTrigger(),
		NewWebhookTrigger(),
		NewCronTrigger(),
		NewHTTPRequest(),
		NewTransform(),
		NewDelay(),
		NewScript(),
		NewLLMAgent(),
	}

	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	logger.Info("builtin plugins registered", "count", len(descriptors))
	return nil
}

// getString извлекает строковое значение из конфига узла.
func getString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// getInt извлекает числовое значение из конфига узла.
// JSON-декодер отдаёт числа как float64.
func getInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// getFloat извлекает дробное значение из конфига узла.
func getFloat(config map[string]any, key string) float64 {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case float64:
			return n
		}
	}
	return 0
}

// getBool извлекает булево значение из конфига узла.
func getBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// getMap извлекает map из конфига узла.
func getMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// getMapString извлекает map[string]string из конфига узла.
func getMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
