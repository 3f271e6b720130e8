// Package raw 不做真正翻译的后端：原样返回或加前缀，用于演练与测试
package raw

import (
	"context"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
)

// DummyPrefix 演练模式使用的前缀
const DummyPrefix = "[DUMMY]"

// Provider Raw 提供商实现
type Provider struct {
	prefix string
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的 Raw 提供商，prefix 为空时原样返回
func New(prefix string) *Provider {
	return &Provider{prefix: prefix}
}

// NewFromConfig 供注册表使用
func NewFromConfig(cfg providers.Config) (providers.Provider, error) {
	return New(cfg.Prefix), nil
}

// Translate 返回原文，非空白文本加上前缀
func (p *Provider) Translate(ctx context.Context, texts []string, _, _ string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		if p.prefix == "" || strings.TrimSpace(t) == "" {
			out[i] = t
			continue
		}
		out[i] = p.prefix + " " + t
	}
	return out, nil
}

// Name 获取提供商名称
func (p *Provider) Name() string {
	return "raw"
}
