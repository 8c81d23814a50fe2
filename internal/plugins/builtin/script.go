package builtin

import (
	"context"
	"fmt"

	"github.com/traefik/yaegi/interp"

	"github.com/shaiso/Conductor/internal/plugin"
)

// TypeScript — тип узла пользовательского скрипта.
const TypeScript = "script"

// Ключ конфигурации script.
const configSource = "source"

// scriptFuncName — функция, которую обязан объявить скрипт.
const scriptFuncName = "Run"

// NewScript возвращает дескриптор узла пользовательского скрипта.
//
// Источник интерпретируется yaegi в изолированном интерпретаторе:
// символы стандартной библиотеки НЕ подключаются, скрипту доступны
// только его входы. Скрипт обязан объявить
//
//	func Run(inputs map[string]any) (map[string]any, error)
//
// Свежий интерпретатор создаётся на каждый вызов: состояние между
// выполнениями не протекает.
func NewScript() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeScript,
		Name:        "Script",
		Description: "Runs a sandboxed user script against node inputs.",
		Category:    CategoryData,
		Inputs: []plugin.PortDescriptor{
			{ID: "input", Name: "Input", DataType: plugin.DataTypeAny},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeAny, Description: "Script return value"},
		},
		ConfigFields: []plugin.ConfigField{
			{Name: configSource, Label: "Source", Type: "text", Placeholder: "func Run(inputs map[string]any) (map[string]any, error) { ... }"},
		},
		Run: runScript,
	}
}

// runScript интерпретирует и вызывает пользовательский скрипт.
func runScript(_ context.Context, inputs map[string]any, rc *plugin.RunContext) (map[string]any, error) {
	source := getString(rc.NodeData, configSource)
	if source == "" {
		return nil, fmt.Errorf("%w: %s: source is required", ErrInvalidConfig, TypeScript)
	}

	i := interp.New(interp.Options{})

	if _, err := i.Eval(source); err != nil {
		return nil, fmt.Errorf("script eval: %w", err)
	}

	fnValue, err := i.Eval(scriptFuncName)
	if err != nil {
		return nil, fmt.Errorf("script must define %s(map[string]any) (map[string]any, error): %w",
			scriptFuncName, err)
	}

	fn, ok := fnValue.Interface().(func(map[string]any) (map[string]any, error))
	if !ok {
		return nil, fmt.Errorf("%s has wrong signature: want func(map[string]any) (map[string]any, error), got %T",
			scriptFuncName, fnValue.Interface())
	}

	if inputs == nil {
		inputs = make(map[string]any)
	}

	outputs, err := fn(inputs)
	if err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	if outputs == nil {
		outputs = make(map[string]any)
	}

	if _, ok := outputs["output"]; !ok {
		// Скрипты без явного порта output публикуют весь результат
		return map[string]any{"output": outputs}, nil
	}
	return outputs, nil
}
