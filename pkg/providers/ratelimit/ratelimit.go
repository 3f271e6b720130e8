// Package ratelimit 限制每分钟请求数的 Translator 装饰器
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"golang.org/x/time/rate"
)

// Translator 每次调用前等待令牌
type Translator struct {
	next    providers.Provider
	limiter *rate.Limiter
}

var _ providers.Provider = (*Translator)(nil)

// New 创建限速装饰器，requestsPerMinute <= 0 时直接返回 next
func New(next providers.Provider, requestsPerMinute int) providers.Provider {
	if requestsPerMinute <= 0 {
		return next
	}
	return &Translator{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// NewWithLimiter 使用现成的 limiter
func NewWithLimiter(next providers.Provider, limiter *rate.Limiter) *Translator {
	return &Translator{next: next, limiter: limiter}
}

// Translate 等待令牌后调用下游
func (t *Translator) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		// 等待失败说明截止时间内拿不到令牌，重试也不会成功
		return nil, retry.Permanent(fmt.Errorf("rate limiter: %w", err))
	}
	return t.next.Translate(ctx, texts, source, target)
}

// Name 下游提供商名称
func (t *Translator) Name() string {
	return t.next.Name()
}
