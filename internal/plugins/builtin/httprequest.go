package builtin

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Conductor/internal/engine"
	"github.com/shaiso/Conductor/internal/plugin"
)

// TypeHTTPRequest — тип узла HTTP запроса.
const TypeHTTPRequest = "http_request"

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации HTTP узла.
const (
	configMethod          = "method"
	configURL             = "url"
	configHeaders         = "headers"
	configBody            = "body"
	configFollowRedirects = "follow_redirects"
	configValidateSSL     = "validate_ssl"
	configTimeoutSec      = "timeout_sec"
)

// NewHTTPRequest возвращает дескриптор узла HTTP запроса.
//
// Выполняет запрос к внешнему API. URL, заголовки и тело
// поддерживают шаблоны с доступом к входам узла:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/items/{{ .Inputs.input }}",
//	    "headers": {"Authorization": "Bearer {{ .Node.token }}"},
//	    "body": {"data": "{{ .Inputs.input }}"},
//	    "validate_ssl": true,
//	    "timeout_sec": 30
//	}
//
// Outputs: status_code, headers, body (JSON парсится, иначе строка).
func NewHTTPRequest() *plugin.Descriptor {
	return &plugin.Descriptor{
		ID:          TypeHTTPRequest,
		Name:        "HTTP Request",
		Description: "Performs an HTTP request to an external API.",
		Category:    CategoryData,
		Inputs: []plugin.PortDescriptor{
			{ID: "input", Name: "Input", DataType: plugin.DataTypeAny, Description: "Value available to URL/body templates"},
		},
		Outputs: []plugin.PortDescriptor{
			{ID: "status_code", Name: "Status Code", DataType: plugin.DataTypeNumber},
			{ID: "headers", Name: "Headers", DataType: plugin.DataTypeObject},
			{ID: "body", Name: "Body", DataType: plugin.DataTypeAny},
		},
		DefaultData: map[string]any{
			configMethod:          http.MethodGet,
			configFollowRedirects: true,
			configValidateSSL:     true,
		},
		ConfigFields: []plugin.ConfigField{
			{Name: configMethod, Label: "Method", Type: "select", Default: "GET", Options: []plugin.SelectOption{
				{Value: "GET", Label: "GET"},
				{Value: "POST", Label: "POST"},
				{Value: "PUT", Label: "PUT"},
				{Value: "PATCH", Label: "PATCH"},
				{Value: "DELETE", Label: "DELETE"},
			}},
			{Name: configURL, Label: "URL", Type: "string", Placeholder: "https://api.example.com/data"},
			{Name: configHeaders, Label: "Headers", Type: "json"},
			{Name: configBody, Label: "Body", Type: "json"},
			{Name: configTimeoutSec, Label: "Timeout (sec)", Type: "number", Default: 30},
		},
		Retryable:   true,
		MaxAttempts: 3,
		Run:         runHTTPRequest,
	}
}

// runHTTPRequest выполняет HTTP запрос узла.
func runHTTPRequest(ctx context.Context, inputs map[string]any, rc *plugin.RunContext) (map[string]any, error) {
	scope := engine.NewScope(inputs, rc.NodeData)
	config, err := engine.RenderMap(rc.NodeData, scope)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}

	cfg, err := parseHTTPConfig(config)
	if err != nil {
		return nil, err
	}

	client := buildHTTPClient(cfg)

	req, err := buildHTTPRequest(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	return parseHTTPResponse(resp)
}

// httpConfig — распарсенная конфигурация HTTP узла.
type httpConfig struct {
	Method          string
	URL             string
	Headers         map[string]string
	Body            any
	FollowRedirects bool
	ValidateSSL     bool
	TimeoutSec      int
}

// parseHTTPConfig парсит конфигурацию HTTP узла.
func parseHTTPConfig(config map[string]any) (*httpConfig, error) {
	cfg := &httpConfig{
		Method:          getString(config, configMethod),
		URL:             getString(config, configURL),
		Headers:         getMapString(config, configHeaders),
		Body:            config[configBody],
		FollowRedirects: getBool(config, configFollowRedirects, true),
		ValidateSSL:     getBool(config, configValidateSSL, true),
		TimeoutSec:      getInt(config, configTimeoutSec),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, TypeHTTPRequest)
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

// buildHTTPClient создаёт клиент с настройками узла.
func buildHTTPClient(cfg *httpConfig) *http.Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if !cfg.FollowRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.ValidateSSL,
			},
		},
	}
}

// buildHTTPRequest создаёт запрос с телом и заголовками.
func buildHTTPRequest(ctx context.Context, cfg *httpConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil {
		bodyBytes, err := serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, hasContentType := cfg.Headers["Content-Type"]; !hasContentType {
			cfg.Headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// serializeBody сериализует тело запроса в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseHTTPResponse парсит ответ в выходные порты узла.
func parseHTTPResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var body any
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			// Невалидный JSON отдаём строкой
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}
