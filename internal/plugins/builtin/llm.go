package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/plugin"
)

// TypeLLMAgent — тип узла LLM агента.
const TypeLLMAgent = "llm_agent"

// Ключи конфигурации LLM узла.
const (
	configPromptTemplate = "prompt_template"
	configSystemPrompt   = "system_prompt"
	configModel          = "model"
	configAPIURL         = "api_url"
	configAPIKey         = "api_key"
	configTemperature    = "temperature"
)

// llmTimeout — таймаут обращения к LLM провайдеру.
const llmTimeout = 2 * time.Minute

// apiKeyEnv — переменная окружения с API ключом, если он не задан
// в конфигурации узла.
const apiKeyEnv = "LLM_API_KEY"

// NewLLMAgent возвращает дескриптор узла LLM агента.
//
// Рендерит prompt-шаблон переменными из входного объекта и отправляет
// его в OpenAI-совместимый chat completions endpoint. Без api_url узел
// работает в режиме симуляции и возвращает отрендеренный prompt —
// полезно для локальной отладки workflow без провайдера.
func NewLLMAgent() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeLLMAgent,
		Name:        "LLM Agent",
		Description: "Integrates an AI language model for advanced tasks.",
		Category:    CategoryAI,
		Inputs: []plugin.PortDescriptor{
			{ID: "input", Name: "Input Data", DataType: plugin.DataTypeObject, Description: "Variables for the prompt template"},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "output", Name: "LLM Response", DataType: plugin.DataTypeString},
			{ID: "model", Name: "Model", DataType: plugin.DataTypeString},
		},
		DefaultData: map[string]any{
			configPromptTemplate: "Write a short paragraph about {{ .Inputs.topic }} in a {{ .Inputs.tone }} tone.",
			configModel:          "gpt-3.5-turbo",
		},
		ConfigFields: []plugin.ConfigField{
			{Name: configPromptTemplate, Label: "Prompt Template", Type: "text", Placeholder: "Summarize this: {{ .Inputs.text }}"},
			{Name: configSystemPrompt, Label: "System Prompt", Type: "text"},
			{Name: configModel, Label: "Model", Type: "string", Default: "gpt-3.5-turbo", Placeholder: "gpt-4, ollama/mistral"},
			{Name: configAPIURL, Label: "API URL", Type: "string", Placeholder: "https://api.openai.com/v1/chat/completions"},
			{Name: configTemperature, Label: "Temperature", Type: "number"},
		},
		Timeout:     llmTimeout,
		Retryable:   true,
		MaxAttempts: 2,
		Run:         runLLMAgent,
	}
}

// runLLMAgent рендерит prompt и обращается к провайдеру.
func runLLMAgent(ctx context.Context, inputs map[string]any, rc *plugin.RunContext) (map[string]any, error) {
	tmpl := getString(rc.NodeData, configPromptTemplate)
	if tmpl == "" {
		return nil, fmt.Errorf("%w: %s: prompt_template is required", ErrInvalidConfig, TypeLLMAgent)
	}

	// Переменные prompt'а — поля входного объекта
	vars, _ := inputs["input"].(map[string]any)
	scope := engine.NewScope(vars, rc.NodeData)

	prompt, err := engine.Render(tmpl, scope)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	model := getString(rc.NodeData, configModel)
	apiURL := getString(rc.NodeData, configAPIURL)

	if apiURL == "" {
		// Режим симуляции: провайдер не настроен
		return map[string]any{
			"output": fmt.Sprintf("[simulated %s] %s", model, prompt),
			"model":  model,
		}, nil
	}

	response, err := callChatCompletions(ctx, rc.NodeData, apiURL, model, prompt)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"output": response,
		"model":  model,
	}, nil
}

// chatRequest — тело запроса OpenAI-совместимого chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

// chatMessage — одно сообщение диалога.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse — тело ответа chat completions API.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// callChatCompletions выполняет запрос к провайдеру.
func callChatCompletions(ctx context.Context, config map[string]any, apiURL, model, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system := getString(config, configSystemPrompt); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: getFloat(config, configTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	apiKey := getString(config, configAPIKey)
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: llmTimeout}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("llm provider error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm provider returned HTTP %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("llm provider returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
