package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama2"
)

// OllamaLLM 通过本地 Ollama 的 /api/chat 实现 LLMClient。
type OllamaLLM struct {
	Model      string
	baseURL    string
	httpClient *http.Client
}

// NewOllamaLLM 创建 Ollama 客户端，未配置时默认 localhost 与 llama2。
func NewOllamaLLM(cfg *LLMSettings) *OllamaLLM {
	o := &OllamaLLM{
		Model:   defaultOllamaModel,
		baseURL: defaultOllamaURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // 纯 CPU 机器上生成长文很慢
		},
	}
	if cfg != nil {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			o.baseURL = cfg.BaseURL
		}
	}
	return o
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func (o *OllamaLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.Model,
		Messages: prompt.Messages(),
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama API error %d: %s", resp.StatusCode, string(msg))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", errors.New("ollama: " + out.Error)
	}
	return out.Message.Content, nil
}

// Ping 检查 Ollama 服务是否可达。
func (o *OllamaLLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error %d", resp.StatusCode)
	}
	return nil
}
