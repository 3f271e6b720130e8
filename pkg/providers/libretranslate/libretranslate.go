// Package libretranslate LibreTranslate 接口翻译后端，q 以数组形式批量提交
package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// DefaultEndpoint 本地部署的默认地址
const DefaultEndpoint = "http://localhost:5000"

// Provider LibreTranslate 提供商
type Provider struct {
	config     providers.Config
	httpClient *http.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的 LibreTranslate 提供商
func New(config providers.Config) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = DefaultEndpoint
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// NewFromConfig 供注册表使用
func NewFromConfig(cfg providers.Config) (providers.Provider, error) {
	return New(cfg), nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if out, ok := providers.ShortCircuit(texts, source, target); ok {
		return out, nil
	}

	out := make([]string, len(texts))
	copy(out, texts)

	var idx []int
	var q []string
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		q = append(q, t)
	}
	if len(q) == 0 {
		return out, nil
	}

	req := TranslateRequest{
		Q:      q,
		Source: normalizeLanguageCode(source),
		Target: normalizeLanguageCode(target),
		Format: "text",
		APIKey: p.config.APIKey,
	}

	resp, err := p.translate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.TranslatedText) != len(q) {
		return nil, translation.NewMismatchError(len(q), len(resp.TranslatedText))
	}
	for k, i := range idx {
		out[i] = resp.TranslatedText[k]
	}
	return out, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "libretranslate"
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("libretranslate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return nil, retry.WithStatus(resp.StatusCode, fmt.Errorf("API error: %s", errorResp.Error))
		}
		return nil, retry.WithStatus(resp.StatusCode, fmt.Errorf("API error: %s", resp.Status))
	}

	var translateResp TranslateResponse
	if err := json.Unmarshal(respBody, &translateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &translateResp, nil
}

// normalizeLanguageCode 标准化为两字母代码，auto 原样保留
func normalizeLanguageCode(s string) string {
	if lang.IsAuto(s) || strings.TrimSpace(s) == "" {
		return lang.Auto
	}
	tag, ok := lang.Tag(s)
	if !ok {
		return strings.ToLower(s)
	}
	base, _ := tag.Base()
	return base.String()
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	TranslatedText []string `json:"translatedText"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
