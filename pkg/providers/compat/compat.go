// Package compat 面向 OpenAI 兼容接口（Ollama、DeepSeek、vLLM 等）的翻译后端
package compat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL 本地 Ollama 的兼容端点
const DefaultBaseURL = "http://localhost:11434/v1"

// Provider 兼容接口提供商
type Provider struct {
	config providers.Config
	client *openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// headerTransport 为每个请求附加自定义头部
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// New 创建兼容接口提供商
func New(config providers.Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	if len(config.Headers) > 0 {
		httpClient.Transport = headerTransport{base: http.DefaultTransport, headers: config.Headers}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = httpClient
	// go-openai 的路径后缀以斜杠开头
	clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// NewFromConfig 供注册表使用
func NewFromConfig(cfg providers.Config) (providers.Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("compat: model is required")
	}
	return New(cfg), nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	return providers.TranslateChat(ctx, p.chat, texts, source, target, p.config.PerItem)
}

func (p *Provider) chat(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", retry.Transient(errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify 将 SDK 错误中的状态码暴露给重试分类
func classify(err error) error {
	wrapped := fmt.Errorf("chat completion failed: %w", err)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return retry.WithStatus(apiErr.HTTPStatusCode, wrapped)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return retry.WithStatus(reqErr.HTTPStatusCode, wrapped)
	}
	return wrapped
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "compat"
}
