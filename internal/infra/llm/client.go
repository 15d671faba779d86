package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventscout/internal/infra/metrics"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client выполняет Chat Completions запросы к генеративному провайдеру.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClient создаёт клиента провайдера.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout + 5*time.Second}
	return &Client{http: httpClient, baseURL: baseURL, apiKey: apiKey, model: model}
}

// Model возвращает модель по умолчанию.
func (c *Client) Model() string {
	return c.model
}

// ChatMessage представляет сообщение в диалоге.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	// RoleSystem системная инструкция.
	RoleSystem = "system"
	// RoleUser сообщение пользователя.
	RoleUser = "user"
)

// ChatRequest описывает тело запроса.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat задаёт формат ответа.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ResponseFormatJSONObject просит вернуть объект JSON.
const ResponseFormatJSONObject = "json_object"

// ChatResponse описывает ответ модели.
type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// Usage описывает статистику использования токенов.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete вызывает /chat/completions и возвращает текст первого ответа.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("llm: api key is empty")
	}
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return "", fmt.Errorf("llm: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			err = fmt.Errorf("llm: %s", apiErr.Error.Message)
		} else {
			err = fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
		}
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return "", err
	}
	var completion ChatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, err)
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("llm", "chat_completions", req.Model, start, nil)
	if completion.Usage != nil {
		metrics.ObserveLLMGeneration(req.Model, time.Since(start), completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("llm: пустой ответ")
	}
	return completion.Choices[0].Message.Content, nil
}

// CompleteJSON выполняет запрос в режиме JSON и распаковывает ответ в out.
// Обёртки из кодовых блоков (```json ... ```) снимаются перед разбором.
func (c *Client) CompleteJSON(ctx context.Context, req ChatRequest, out any) error {
	if req.ResponseFormat == nil {
		req.ResponseFormat = &ResponseFormat{Type: ResponseFormatJSONObject}
	}
	content, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	cleaned := StripCodeFence(content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("llm: распаковка ответа: %w", err)
	}
	return nil
}

// StripCodeFence снимает маркеры кодового блока вокруг ответа модели.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 && !strings.ContainsAny(trimmed[:idx], "{[") {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
