package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Result 一个批次的译文，与批次单元逐位对应
type Result struct {
	Batch    int
	Texts    []string
	Attempts int

	// Failed 批次最终失败（仅部分接受模式下出现），重组时保留原文
	Failed bool
}

// Invoker 对单个批次调用翻译能力，校验对齐并按策略重试
type Invoker struct {
	translator Translator
	source     string
	target     string
	policy     retry.Policy
	logger     *zap.Logger
	level      zapcore.Level
}

// NewInvoker 创建调用器
func NewInvoker(t Translator, cfg Config, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	level := zapcore.DebugLevel
	if cfg.Debug {
		level = zapcore.InfoLevel
	}
	return &Invoker{
		translator: t,
		source:     cfg.SourceLanguage,
		target:     cfg.TargetLanguage,
		policy:     cfg.RetryPolicy(),
		logger:     logger,
		level:      level,
	}
}

// Invoke 翻译一个批次。
// 瞬时错误与空译文在 MaxRetries 次内退避重试；条数不一致最多重试一次；其他错误立即失败。
func (iv *Invoker) Invoke(ctx context.Context, b Batch) (Result, error) {
	texts := b.Texts()
	retries := 0
	mismatches := 0

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, newBatchError(b, attempt-1, ErrCodeCanceled, err)
		}

		out, err := iv.translator.Translate(ctx, texts, iv.source, iv.target)
		if err == nil {
			err = checkAlignment(texts, out)
		}
		if err == nil {
			iv.logger.Log(iv.level, "batch translated",
				zap.Int("batch", b.Index),
				zap.Int("units", len(texts)),
				zap.Int("attempt", attempt))
			return Result{Batch: b.Index, Texts: out, Attempts: attempt}, nil
		}

		if ctx.Err() != nil {
			return Result{}, newBatchError(b, attempt, ErrCodeCanceled, err)
		}

		kind, retryable := iv.classify(err)
		if kind == ErrCodeAlignment {
			mismatches++
			retryable = mismatches == 1
		}
		if !retryable || retries >= iv.policy.MaxRetries {
			iv.logger.Warn("batch failed",
				zap.Int("batch", b.Index),
				zap.Int("attempt", attempt),
				zap.String("kind", kind),
				zap.Error(err))
			return Result{}, newBatchError(b, attempt, kind, err)
		}

		delay := iv.policy.Delay(retries)
		retries++
		iv.logger.Debug("retrying batch",
			zap.Int("batch", b.Index),
			zap.Int("attempt", attempt),
			zap.String("kind", kind),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := retry.Sleep(ctx, delay); err != nil {
			return Result{}, newBatchError(b, attempt, ErrCodeCanceled, err)
		}
	}
}

func (iv *Invoker) classify(err error) (kind string, retryable bool) {
	switch {
	case errors.Is(err, ErrAlignmentMismatch):
		return ErrCodeAlignment, true
	case errors.Is(err, ErrEmptyResponse):
		return ErrCodeEmpty, true
	}
	// 显式标注了可否重试的错误以标注为准
	var te *TranslationError
	if errors.As(err, &te) {
		if te.IsRetryable() {
			return ErrCodeTransient, true
		}
		return ErrCodePermanent, false
	}
	switch {
	case retry.IsTransient(err):
		return ErrCodeTransient, true
	default:
		return ErrCodePermanent, false
	}
}

// checkAlignment 校验译文与输入等长，且非空输入没有得到空译文
func checkAlignment(texts, out []string) error {
	if len(out) != len(texts) {
		return NewMismatchError(len(texts), len(out))
	}
	for i := range texts {
		if strings.TrimSpace(out[i]) == "" && strings.TrimSpace(texts[i]) != "" {
			return fmt.Errorf("%w: text %d of %d", ErrEmptyResponse, i, len(texts))
		}
	}
	return nil
}
