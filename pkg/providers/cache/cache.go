package cache

import (
	"context"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
	"go.uber.org/zap"
)

// Translator 带缓存的翻译装饰器，只把未命中的文本交给下游
type Translator struct {
	next   providers.Provider
	store  Store
	logger *zap.Logger
}

var _ providers.Provider = (*Translator)(nil)

// New 创建缓存装饰器
func New(next providers.Provider, store Store, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{next: next, store: store, logger: logger}
}

// Translate 命中的文本直接返回，未命中的合并为一次下游调用并写回缓存。
// 缓存读写失败只记录日志，不影响翻译。
func (c *Translator) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	out := make([]string, len(texts))
	copy(out, texts)

	var missIdx []int
	var misses []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		value, ok, err := c.store.Get(ctx, Key(source, target, text))
		if err != nil {
			c.logger.Warn("cache lookup failed", zap.Error(err))
		}
		if ok {
			out[i] = value
			continue
		}
		missIdx = append(missIdx, i)
		misses = append(misses, text)
	}

	c.logger.Debug("cache lookup",
		zap.Int("texts", len(texts)),
		zap.Int("misses", len(misses)))

	if len(misses) == 0 {
		return out, nil
	}

	translated, err := c.next.Translate(ctx, misses, source, target)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(misses) {
		return nil, translation.NewMismatchError(len(misses), len(translated))
	}

	for k, i := range missIdx {
		out[i] = translated[k]
		if strings.TrimSpace(translated[k]) == "" {
			continue
		}
		if err := c.store.Set(ctx, Key(source, target, misses[k]), translated[k]); err != nil {
			c.logger.Warn("cache store failed", zap.Error(err))
		}
	}
	return out, nil
}

// Name 下游提供商名称
func (c *Translator) Name() string {
	return c.next.Name()
}
