package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из httpapi/dto.go, CLI не импортирует internal/httpapi) ---

// RunResponse — run из API.
type RunResponse struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	WorkflowName  string         `json:"workflow_name,omitempty"`
	Status        string         `json:"status"`
	StartedAt     string         `json:"started_at"`
	FinishedAt    string         `json:"finished_at,omitempty"`
	CurrentStepID string         `json:"current_step_id,omitempty"`
	ContextData   map[string]any `json:"context_data,omitempty"`
	Error         *RunError      `json:"error,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
}

// RunError — ошибка run из API.
type RunError struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// PluginResponse — дескриптор плагина из API.
type PluginResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Inputs      []struct {
		ID       string `json:"id"`
		DataType string `json:"data_type"`
	} `json:"inputs"`
	Outputs []struct {
		ID       string `json:"id"`
		DataType string `json:"data_type"`
	} `json:"outputs"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	CronExpr   string `json:"cron_expr"`
	Timezone   string `json:"timezone,omitempty"`
	Enabled    bool   `json:"enabled"`
	NextDueAt  string `json:"next_due_at,omitempty"`
	LastRunID  string `json:"last_run_id,omitempty"`
	LastRunAt  string `json:"last_run_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// HookResponse — webhook-привязка из API.
type HookResponse struct {
	HookID     string `json:"hook_id"`
	WorkflowID string `json:"workflow_id"`
	Path       string `json:"path"`
}

// --- Request types ---

// StartRunRequest — запуск workflow.
type StartRunRequest struct {
	Workflow json.RawMessage `json:"workflow"`
	Payload  map[string]any  `json:"payload,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Workflow json.RawMessage `json:"workflow"`
	CronExpr string          `json:"cron_expr"`
	Timezone string          `json:"timezone,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
}

// RegisterHookRequest — регистрация webhook.
type RegisterHookRequest struct {
	Workflow json.RawMessage `json:"workflow"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Conductor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Runs ---

// StartRun запускает workflow.
func (c *Client) StartRun(workflow json.RawMessage, payload map[string]any) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs", StartRunRequest{Workflow: workflow, Payload: payload}, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// --- Plugins ---

// ListPlugins возвращает зарегистрированные плагины.
// Если category не пустая — фильтрует.
func (c *Client) ListPlugins(category string) ([]PluginResponse, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}

	var plugins []PluginResponse
	err := c.list("/api/v1/plugins", params, &plugins)
	return plugins, err
}

// --- Schedules ---

// ListSchedules возвращает schedules.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// --- Hooks ---

// RegisterHook привязывает workflow к webhook.
func (c *Client) RegisterHook(hookID string, workflow json.RawMessage) (*HookResponse, error) {
	var hook HookResponse
	err := c.put("/api/v1/hooks/"+hookID, RegisterHookRequest{Workflow: workflow}, &hook)
	return &hook, err
}

// DeleteHook удаляет webhook-привязку.
func (c *Client) DeleteHook(hookID string) error {
	return c.delete("/api/v1/hooks/" + hookID)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
