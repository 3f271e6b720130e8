package translation

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
)

// Config 一次翻译运行的配置
type Config struct {
	// 语言配置
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	// 每批最多包含的文本单元数
	BatchSize int `json:"batch_size"`

	// 同时进行中的批次数
	Concurrency int `json:"concurrency"`

	// 重试配置
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`

	// AllOrNothing 任一批次最终失败则整次运行失败；关闭后失败批次保留原文
	AllOrNothing bool `json:"all_or_nothing"`

	// Debug 以 Info 级别输出逐批进度，不影响结果
	Debug bool `json:"debug"`

	// SkipTags 其下文本不提取的元素
	SkipTags []string `json:"skip_tags"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	p := retry.DefaultPolicy()
	return Config{
		SourceLanguage: "English",
		TargetLanguage: "Italian",
		BatchSize:      8,
		Concurrency:    4,
		MaxRetries:     p.MaxRetries,
		InitialDelay:   p.InitialDelay,
		MaxDelay:       p.MaxDelay,
		BackoffFactor:  p.BackoffFactor,
		AllOrNothing:   true,
		SkipTags:       append([]string(nil), DefaultSkipTags...),
	}
}

// Validate 验证配置的合法性，在任何网络调用之前执行
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SourceLanguage) == "" {
		problems = append(problems, "source language is required")
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		problems = append(problems, "target language is required")
	}
	if c.BatchSize < 1 {
		problems = append(problems, fmt.Sprintf("batch_size must be >= 1, got %d", c.BatchSize))
	}
	if c.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("max_retries must be >= 0, got %d", c.MaxRetries))
	}
	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.InitialDelay < 0 || c.MaxDelay < 0 {
		problems = append(problems, "retry delays must not be negative")
	}
	if len(problems) > 0 {
		return NewConfigError(strings.Join(problems, "; "))
	}
	return nil
}

// RetryPolicy 由配置构造重试策略
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:    c.MaxRetries,
		InitialDelay:  c.InitialDelay,
		MaxDelay:      c.MaxDelay,
		BackoffFactor: c.BackoffFactor,
	}
}
