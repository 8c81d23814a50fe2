package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")

	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")
)

// Scope — данные, доступные шаблонам в конфигурации узла:
//
//	{{ .Inputs.input }}       — входы узла по ID портов
//	{{ .Node.label }}         — данные экземпляра узла
//	{{ .Env.VAR }}            — переменные окружения, явно переданные узлу
type Scope struct {
	// Inputs — входы узла (ID входного порта → значение).
	Inputs map[string]any

	// Node — данные экземпляра узла (смерженные с DefaultData).
	Node map[string]any

	// Env — переменные окружения.
	Env map[string]string
}

// NewScope создаёт Scope для рендеринга.
func NewScope(inputs, nodeData map[string]any) *Scope {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	if nodeData == nil {
		nodeData = make(map[string]any)
	}
	return &Scope{
		Inputs: inputs,
		Node:   nodeData,
		Env:    make(map[string]string),
	}
}

// templateFuncs — дополнительные функции для шаблонов.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// fromJSON — парсит JSON строку
	"fromJSON": func(s string) any {
		var result any
		if err := json.Unmarshal([]byte(s), &result); err != nil {
			return nil
		}
		return result
	},

	// default — возвращает значение по умолчанию, если аргумент пустой
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"trim":     strings.TrimSpace,
	"replace":  strings.ReplaceAll,
	"contains": strings.Contains,

	// join — объединяет слайс строк
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},

	// split — разбивает строку на слайс
	"split": func(sep, s string) []string {
		return strings.Split(s, sep)
	},
}

// Render рендерит строковый шаблон со Scope.
// Строки без шаблонных выражений возвращаются как есть.
func Render(tmpl string, scope *Scope) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, scope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение, рекурсивно обрабатывая
// map и slice. Нестроковые скаляры возвращаются как есть.
func RenderValue(value any, scope *Scope) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, scope)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, scope)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, scope)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			rendered, err := Render(val, scope)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	default:
		return value, nil
	}
}

// RenderMap рендерит map-конфигурацию узла.
func RenderMap(config map[string]any, scope *Scope) (map[string]any, error) {
	if config == nil {
		return make(map[string]any), nil
	}

	rendered, err := RenderValue(config, scope)
	if err != nil {
		return nil, err
	}

	result, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected map, got %T", ErrTemplateRender, rendered)
	}

	return result, nil
}
