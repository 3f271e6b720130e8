// Package factory 根据配置组装翻译后端及其装饰器链
package factory

import (
	"fmt"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/cache"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/compat"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/predefined"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/ratelimit"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/raw"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/stats"
	"go.uber.org/zap"
)

// 后端类型
const (
	TypeOpenAI         = "openai"
	TypeCompat         = "compat"
	TypeDeepL          = "deepl"
	TypeLibreTranslate = "libretranslate"
	TypePredefined     = "predefined"
	TypeRaw            = "raw"
	TypeDummy          = "dummy"
)

// NewRegistry 返回注册了全部内置后端的注册表
func NewRegistry() *providers.Registry {
	r := providers.NewRegistry()
	_ = r.Register(TypeOpenAI, openai.NewFromConfig)
	_ = r.Register(TypeCompat, compat.NewFromConfig)
	_ = r.Register(TypeDeepL, deepl.NewFromConfig)
	_ = r.Register(TypeLibreTranslate, libretranslate.NewFromConfig)
	_ = r.Register(TypeRaw, raw.NewFromConfig)
	_ = r.Register(TypeDummy, func(providers.Config) (providers.Provider, error) {
		return raw.New(raw.DummyPrefix), nil
	})
	return r
}

// Options 组装参数
type Options struct {
	Provider          string
	Config            providers.Config
	RequestsPerMinute int
	PredefinedPath    string
	CacheEnabled      bool
	CachePath         string // 空表示内存缓存
	Stats             *stats.Manager
	Logger            *zap.Logger
}

// Chain 组装好的后端，Close 释放缓存
type Chain struct {
	providers.Provider
	store cache.Store
}

// Close 释放资源
func (c *Chain) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Build 组装：后端 → 统计 → 限速 → 预定义词表 → 缓存
func Build(registry *providers.Registry, opts Options) (*Chain, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var table *predefined.Table
	if opts.PredefinedPath != "" {
		t, err := predefined.Load(opts.PredefinedPath)
		if err != nil {
			return nil, err
		}
		table = t
	}

	var p providers.Provider
	if opts.Provider == TypePredefined {
		if table == nil {
			return nil, fmt.Errorf("provider %s requires predefined_translations", TypePredefined)
		}
		p = predefined.New(table, nil)
	} else {
		base, err := registry.New(opts.Provider, opts.Config)
		if err != nil {
			return nil, err
		}
		p = base
		if opts.Stats != nil {
			p = stats.NewMiddleware(p, opts.Stats, opts.Config.Model)
		}
		p = ratelimit.New(p, opts.RequestsPerMinute)
		if table != nil {
			p = providers.Named(base.Name(), predefined.New(table, p))
		}
	}

	chain := &Chain{Provider: p}
	if opts.CacheEnabled {
		var store cache.Store
		if opts.CachePath == "" {
			store = cache.NewMemoryStore()
		} else {
			s, err := cache.OpenSQLite(opts.CachePath)
			if err != nil {
				return nil, err
			}
			store = s
		}
		chain.store = store
		chain.Provider = cache.New(p, store, logger)
	}

	logger.Debug("provider chain built",
		zap.String("provider", opts.Provider),
		zap.String("model", opts.Config.Model),
		zap.Bool("cache", opts.CacheEnabled),
		zap.Bool("predefined", table != nil),
		zap.Int("requestsPerMinute", opts.RequestsPerMinute))
	return chain, nil
}
