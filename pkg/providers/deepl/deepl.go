// Package deepl DeepL REST 接口翻译后端，原生支持批量
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

const (
	// ProEndpoint 付费版地址
	ProEndpoint = "https://api.deepl.com/v2"
	// FreeEndpoint 免费版地址
	FreeEndpoint = "https://api-free.deepl.com/v2"
)

// Provider DeepL提供商
type Provider struct {
	config     providers.Config
	httpClient *http.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的DeepL提供商。免费版密钥以 ":fx" 结尾。
func New(config providers.Config) *Provider {
	if config.BaseURL == "" {
		if strings.HasSuffix(config.APIKey, ":fx") {
			config.BaseURL = FreeEndpoint
		} else {
			config.BaseURL = ProEndpoint
		}
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// NewFromConfig 供注册表使用
func NewFromConfig(cfg providers.Config) (providers.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepl: api_key is required")
	}
	return New(cfg), nil
}

// Translate 一次请求翻译整批文本，译文顺序与 text 参数一致
func (p *Provider) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if out, ok := providers.ShortCircuit(texts, source, target); ok {
		return out, nil
	}

	out := make([]string, len(texts))
	copy(out, texts)

	params := url.Values{}
	var idx []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		idx = append(idx, i)
		params.Add("text", t)
	}
	if len(idx) == 0 {
		return out, nil
	}

	params.Set("target_lang", normalizeLanguageCode(target, false))
	if source != "" && !lang.IsAuto(source) {
		params.Set("source_lang", normalizeLanguageCode(source, true))
	}

	resp, err := p.translate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Translations) != len(idx) {
		return nil, translation.NewMismatchError(len(idx), len(resp.Translations))
	}
	for k, i := range idx {
		out[i] = resp.Translations[k].Text
	}
	return out, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "deepl"
}

// translate 执行翻译请求，重试交给调用方
func (p *Provider) translate(ctx context.Context, params url.Values) (*TranslateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/translate",
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.config.APIKey)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, retry.WithStatus(resp.StatusCode, statusError(resp, errBody))
	}

	var translateResp TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return nil, retry.Transient(fmt.Errorf("failed to decode response: %w", err))
	}
	return &translateResp, nil
}

// statusError 处理特定错误码
func statusError(resp *http.Response, body []byte) error {
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", strings.TrimSpace(string(body)))
	case http.StatusForbidden:
		return fmt.Errorf("authentication failed")
	case http.StatusNotFound:
		return fmt.Errorf("requested resource not found")
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("request size exceeded")
	case http.StatusTooManyRequests:
		return fmt.Errorf("too many requests")
	case 456:
		return fmt.Errorf("quota exceeded")
	case http.StatusServiceUnavailable:
		return fmt.Errorf("service temporarily unavailable")
	default:
		return fmt.Errorf("API error: %s", resp.Status)
	}
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(s string, isSource bool) string {
	tag, ok := lang.Tag(s)
	if !ok {
		return strings.ToUpper(strings.ReplaceAll(s, "_", "-"))
	}
	if isSource {
		base, _ := tag.Base()
		return strings.ToUpper(base.String())
	}

	code := strings.ToUpper(tag.String())
	// 英语和葡萄牙语的目标语言需要指定变体
	switch code {
	case "EN":
		return "EN-US"
	case "PT":
		return "PT-BR"
	}
	return code
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
