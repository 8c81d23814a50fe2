package plugin

import (
	"context"
	"time"
)

// DataType — тип данных порта.
type DataType string

// Типы данных портов.
const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeObject  DataType = "object"
	DataTypeArray   DataType = "array"
	DataTypeAny     DataType = "any"
)

// PortDescriptor — описание входного или выходного порта узла.
//
// Неизменяем после регистрации плагина. Типы портов — метаданные для
// редактора: движок НЕ проверяет совпадение типов на рёбрах при
// выполнении, несоответствие всплывает только если сам плагин
// валидирует свои входы.
type PortDescriptor struct {
	// ID — идентификатор порта, уникальный внутри типа узла.
	ID string `json:"id"`

	// Name — отображаемое имя порта.
	Name string `json:"name"`

	// DataType — ожидаемый тип данных.
	DataType DataType `json:"data_type"`

	// Description — описание назначения порта.
	Description string `json:"description,omitempty"`
}

// RunContext — контекст выполнения, передаваемый в run-функцию узла.
//
// Run-функция никогда не знает идентичность своих upstream-узлов:
// всё, что ей доступно — её собственные входы и конфигурация.
type RunContext struct {
	// NodeData — конфигурация экземпляра узла,
	// смерженная поверх DefaultData плагина.
	NodeData map[string]any

	// TriggerPayload — полезная нагрузка, с которой запущен run
	// (тело webhook, данные scheduler и т.п.). Заполнен только
	// для trigger-узлов.
	TriggerPayload map[string]any
}

// RunFunc — run-функция узла.
//
// inputs — map от ID входного порта к значению. Отсутствующие
// upstream-значения просто не попадают в map: run-функция обязана
// защищаться от отсутствия ожидаемых входов.
//
// Возвращает map от ID выходного порта к значению. Ошибка означает
// провал узла и текущего пути выполнения.
type RunFunc func(ctx context.Context, inputs map[string]any, rc *RunContext) (map[string]any, error)

// ConfigField — декларативное описание поля настройки узла
// для панели конфигурации редактора.
type ConfigField struct {
	// Name — ключ в Node.Data.
	Name string `json:"name"`

	// Label — подпись поля.
	Label string `json:"label"`

	// Type — тип поля ввода: string, text, number, boolean, select, json.
	Type string `json:"type"`

	// Placeholder — подсказка в пустом поле.
	Placeholder string `json:"placeholder,omitempty"`

	// Default — значение по умолчанию.
	Default any `json:"default,omitempty"`

	// Options — варианты для type == "select".
	Options []SelectOption `json:"options,omitempty"`
}

// SelectOption — вариант выбора для select-поля.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Descriptor — зарегистрированная capability-запись типа узла.
//
// Принадлежит исключительно Registry; после регистрации не мутируется.
// Это единственная точка расширения движка: всё поведение узла
// приходит через Run.
type Descriptor struct {
	// ID — глобально уникальный ключ типа узла (например, "trigger",
	// "llm_agent"). На него ссылается Node.Type.
	ID string `json:"id"`

	// Name — отображаемое имя типа узла.
	Name string `json:"name"`

	// Description — краткое описание назначения.
	Description string `json:"description,omitempty"`

	// Category — категория для палитры редактора ("Core", "AI", "Data").
	Category string `json:"category,omitempty"`

	// Inputs — входные порты. Узлы без входных портов — триггеры,
	// точки входа workflow.
	Inputs []PortDescriptor `json:"inputs"`

	// Outputs — выходные порты.
	Outputs []PortDescriptor `json:"outputs"`

	// DefaultData — данные по умолчанию для нового узла этого типа.
	DefaultData map[string]any `json:"default_data,omitempty"`

	// ConfigFields — поля настройки для панели редактора.
	ConfigFields []ConfigField `json:"config_fields,omitempty"`

	// Run — run-функция узла. Не сериализуется.
	Run RunFunc `json:"-"`

	// Timeout — таймаут выполнения одного вызова Run.
	// 0 означает таймаут walker'а по умолчанию.
	Timeout time.Duration `json:"-"`

	// Retryable — разрешён ли автоматический retry при ошибке Run.
	// Узлы с побочными эффектами не должны ретраиться вслепую.
	Retryable bool `json:"retryable,omitempty"`

	// MaxAttempts — максимум попыток для retryable-плагина.
	// 0 означает значение walker'а по умолчанию.
	MaxAttempts int `json:"max_attempts,omitempty"`
}

// IsTrigger возвращает true, если тип узла не объявляет входных портов.
func (d *Descriptor) IsTrigger() bool {
	return len(d.Inputs) == 0
}

// MergedData возвращает данные узла, смерженные поверх DefaultData.
// instance имеет приоритет над значениями по умолчанию.
func (d *Descriptor) MergedData(instance map[string]any) map[string]any {
	merged := make(map[string]any, len(d.DefaultData)+len(instance))
	for k, v := range d.DefaultData {
		merged[k] = v
	}
	for k, v := range instance {
		merged[k] = v
	}
	return merged
}
