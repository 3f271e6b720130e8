package stats

import (
	"context"
	"errors"
	"time"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"github.com/nerdneilsfield/go-epub-translator/pkg/translation"
)

// Middleware 统计中间件
type Middleware struct {
	next    providers.Provider
	manager *Manager
	model   string
}

var _ providers.Provider = (*Middleware)(nil)

// NewMiddleware 创建统计中间件
func NewMiddleware(next providers.Provider, manager *Manager, model string) *Middleware {
	return &Middleware{next: next, manager: manager, model: model}
}

// Translate 带统计的翻译方法
func (sm *Middleware) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	start := time.Now()
	out, err := sm.next.Translate(ctx, texts, source, target)

	chars := 0
	for _, t := range texts {
		chars += len([]rune(t))
	}
	result := RequestResult{
		Success: err == nil,
		Latency: time.Since(start),
		Texts:   len(texts),
		Chars:   chars,
	}
	if err != nil {
		result.ErrorType = classifyError(err)
		result.Alignment = errors.Is(err, translation.ErrAlignmentMismatch)
	}
	sm.manager.Record(sm.next.Name(), sm.model, result)

	return out, err
}

// classifyError 错误类型名称
func classifyError(err error) string {
	switch {
	case errors.Is(err, translation.ErrAlignmentMismatch):
		return "alignment"
	case errors.Is(err, translation.ErrEmptyResponse):
		return "empty"
	default:
		return retry.Classify(err).String()
	}
}

// Name 获取提供商名称
func (sm *Middleware) Name() string {
	return sm.next.Name()
}
