// Package providers 汇集各类翻译后端及其装饰器
package providers

import (
	"time"

	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// Config 后端通用配置
type Config struct {
	APIKey      string            `json:"api_key" mapstructure:"api_key"`
	BaseURL     string            `json:"base_url" mapstructure:"base_url"`
	Model       string            `json:"model" mapstructure:"model"`
	Temperature float64           `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int               `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration     `json:"timeout" mapstructure:"timeout"`
	Headers     map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	// PerItem 每段文本单独请求一次，不使用段落标记
	PerItem bool `json:"per_item" mapstructure:"per_item"`
	// Prefix 仅 raw 后端使用
	Prefix string `json:"prefix,omitempty" mapstructure:"prefix"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Temperature: 0.3,
		MaxTokens:   4096,
		Timeout:     5 * time.Minute,
		Headers:     make(map[string]string),
	}
}

// Provider 具名的翻译后端
type Provider interface {
	translation.Translator
	Name() string
}

// named 为任意 Translator 附加名称
type named struct {
	translation.Translator
	name string
}

func (n named) Name() string { return n.name }

// Named 将 Translator 包装为 Provider
func Named(name string, t translation.Translator) Provider {
	if p, ok := t.(Provider); ok && p.Name() == name {
		return p
	}
	return named{Translator: t, name: name}
}
