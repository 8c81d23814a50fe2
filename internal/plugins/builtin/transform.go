package builtin

import (
	"context"
	"fmt"

	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/plugin"
)

// TypeTransform — тип узла трансформации данных.
const TypeTransform = "transform"

// Ключ конфигурации transform.
const configMapping = "mapping"

// NewTransform возвращает дескриптор узла трансформации.
//
// Собирает новый объект из входов узла по декларативному mapping
// с шаблонами:
//
//	{
//	    "mapping": {
//	        "full_name": "{{ .Inputs.first }} {{ .Inputs.last }}",
//	        "email":     "{{ lower .Inputs.email }}"
//	    }
//	}
//
// Результат публикуется в порт output целиком и в порт по ключу,
// если mapping содержит единственный ключ.
func NewTransform() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeTransform,
		Name:        "Transform",
		Description: "Builds a new object from node inputs via templates.",
		Category:    CategoryData,
		Inputs: []plugin.PortDescriptor{
			{ID: "input", Name: "Input", DataType: plugin.DataTypeAny},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "Output", DataType: plugin.DataTypeObject},
		},
		ConfigFields: []plugin.ConfigField{
			{Name: configMapping, Label: "Mapping", Type: "json"},
		},
		Run: runTransform,
	}
}

// runTransform рендерит mapping со входами узла.
func runTransform(_ context.Context, inputs map[string]any, rc *plugin.RunContext) (map[string]any, error) {
	mapping := getMap(rc.NodeData, configMapping)
	if mapping == nil {
		return nil, fmt.Errorf("%w: %s: mapping is required", ErrInvalidConfig, TypeTransform)
	}

	scope := engine.NewScope(inputs, rc.NodeData)
	rendered, err := engine.RenderMap(mapping, scope)
	if err != nil {
		return nil, fmt.Errorf("render mapping: %w", err)
	}

	return map[string]any{
		"output": rendered,
	}, nil
}
