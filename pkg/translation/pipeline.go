package translation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nerdneilsfield/go-epub-translator/pkg/book"
	"github.com/nerdneilsfield/go-epub-translator/pkg/checker"
	"github.com/nerdneilsfield/go-epub-translator/pkg/lang"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reporter 接收运行进度，BatchDone 可能被并发调用
type Reporter interface {
	RunStarted(runID string, batches, units int)
	BatchDone(b Batch, err error)
	RunFinished(err error)
}

type nopReporter struct{}

func (nopReporter) RunStarted(string, int, int) {}
func (nopReporter) BatchDone(Batch, error)      {}
func (nopReporter) RunFinished(error)           {}

type runOptions struct {
	logger   *zap.Logger
	reporter Reporter
	runID    string
}

// Option 运行选项
type Option func(*runOptions)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(o *runOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReporter 设置进度报告
func WithReporter(r Reporter) Option {
	return func(o *runOptions) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithRunID 指定运行 ID，默认随机生成
func WithRunID(id string) Option {
	return func(o *runOptions) {
		o.runID = id
	}
}

// TranslateBook 翻译整本书，返回通过结构检查的新书；源书不会被修改。
//
// 批次在 cfg.Concurrency 限制下并发调用，结果按批次下标缓冲后顺序写回克隆。
// AllOrNothing 模式下任一批次最终失败会取消其余批次并返回 *RunError，不返回书籍；
// 否则失败批次保留原文，返回书籍的同时返回 Partial 为 true 的 *RunError。
// 结构检查失败时总是不返回书籍。
func TranslateBook(ctx context.Context, b *book.Book, t Translator, cfg Config, opts ...Option) (*book.Book, error) {
	o := runOptions{logger: zap.NewNop(), reporter: nopReporter{}}
	for _, opt := range opts {
		opt(&o)
	}

	if b == nil {
		return nil, NewConfigError("book is nil")
	}
	if t == nil {
		return nil, NewConfigError("translator is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	log := o.logger.With(zap.String("runID", o.runID))

	batches, err := MakeBatches(Extract(b, WithSkipTags(cfg.SkipTags...)), cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	units := 0
	for _, bt := range batches {
		units += bt.Len()
	}
	log.Info("translation started",
		zap.Int("chapters", len(b.Chapters)),
		zap.Int("units", units),
		zap.Int("batches", len(batches)),
		zap.String("source", cfg.SourceLanguage),
		zap.String("target", cfg.TargetLanguage))
	o.reporter.RunStarted(o.runID, len(batches), units)

	out, err := run(ctx, o.runID, b, batches, t, cfg, log, o.reporter)
	o.reporter.RunFinished(err)
	if err != nil {
		log.Error("translation failed", zap.Error(err))
	} else {
		log.Info("translation finished")
	}
	return out, err
}

func run(ctx context.Context, runID string, b *book.Book, batches []Batch, t Translator, cfg Config, log *zap.Logger, reporter Reporter) (*book.Book, error) {
	inv := NewInvoker(t, cfg, log)
	results := make([]Result, len(batches))
	failures := make([]*BatchError, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i, bt := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := inv.Invoke(gctx, bt)
			reporter.BatchDone(bt, err)
			if err == nil {
				results[i] = res
				return nil
			}
			var be *BatchError
			if !errors.As(err, &be) {
				be = newBatchError(bt, 0, ErrCodePermanent, err)
			}
			failures[i] = be
			results[i] = Result{Batch: bt.Index, Failed: true}
			if cfg.AllOrNothing {
				return be
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("translation canceled: %w", err)
	}

	// 被取消的批次不是失败原因
	var failed []*BatchError
	for _, be := range failures {
		if be != nil && be.Kind != ErrCodeCanceled {
			failed = append(failed, be)
		}
	}
	if cfg.AllOrNothing && len(failed) > 0 {
		return nil, newRunError(runID, failed, nil, false)
	}
	clone := b.Clone()
	if err := Reassemble(b, clone, batches, results); err != nil {
		return nil, err
	}
	if !lang.Same(b.Metadata.Language, cfg.TargetLanguage) {
		clone.Metadata.Language = lang.Code(cfg.TargetLanguage)
	}

	verdict := checker.CheckBook(b, clone)
	if !verdict.OK {
		return nil, newRunError(runID, failed, verdict.Violations, false)
	}
	if len(failed) > 0 {
		return clone, newRunError(runID, failed, nil, true)
	}
	return clone, nil
}
