// Package openai 基于官方 openai-go SDK 的翻译后端
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel 未配置模型时使用
const DefaultModel = "gpt-4o-mini"

// Provider OpenAI 提供商
type Provider struct {
	config providers.Config
	client openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的 OpenAI 提供商。重试由调用方负责，SDK 自身不重试。
func New(config providers.Config) *Provider {
	if config.Model == "" {
		config.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// NewFromConfig 供注册表使用
func NewFromConfig(cfg providers.Config) (providers.Provider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: api_key is required")
	}
	return New(cfg), nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	return providers.TranslateChat(ctx, p.chat, texts, source, target, p.config.PerItem)
}

func (p *Provider) chat(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model: openai.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", retry.WithStatus(apiErr.StatusCode, fmt.Errorf("openai chat completion failed: %w", err))
		}
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", retry.Transient(errors.New("no choices returned from OpenAI"))
	}
	return completion.Choices[0].Message.Content, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "openai"
}
