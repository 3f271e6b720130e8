package translation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-epub-translator/pkg/checker"
	"github.com/nerdneilsfield/go-epub-translator/pkg/providers/retry"
	"go.uber.org/multierr"
)

// 预定义错误
var (
	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrAlignmentMismatch 返回条数与输入条数不一致
	ErrAlignmentMismatch = errors.New("alignment mismatch")

	// ErrTransient 可重试的调用错误
	ErrTransient = retry.ErrTransient

	// ErrEmptyResponse 对非空输入返回了空译文
	ErrEmptyResponse = errors.New("empty response")

	// ErrStructuralViolation 译文书籍结构与原书不一致
	ErrStructuralViolation = checker.ErrStructuralViolation

	// ErrRunFailed 整次运行失败，没有返回书籍
	ErrRunFailed = errors.New("translation run failed")

	// ErrPartialResult 部分批次失败，返回的书籍中这些批次保留原文
	ErrPartialResult = errors.New("partial translation")
)

// 错误代码常量
const (
	ErrCodeConfig    = "CONFIG_ERROR"
	ErrCodeAlignment = "ALIGNMENT_ERROR"
	ErrCodeTransient = "TRANSIENT_ERROR"
	ErrCodeEmpty     = "EMPTY_RESPONSE"
	ErrCodePermanent = "PERMANENT_ERROR"
	ErrCodeCanceled  = "CANCELED"
)

// TranslationError 带错误代码的翻译错误
type TranslationError struct {
	Code    string // 错误代码
	Message string // 错误消息
	Cause   error  // 原因
	Retry   bool   // 是否可重试
}

// Error 实现error接口
func (e *TranslationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *TranslationError) IsRetryable() bool {
	return e.Retry
}

// NewConfigError 创建配置错误
func NewConfigError(message string) *TranslationError {
	return &TranslationError{Code: ErrCodeConfig, Message: message, Cause: ErrInvalidConfig}
}

// MismatchError 返回的译文条数与输入不一致
type MismatchError struct {
	Want int
	Got  int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("alignment mismatch: sent %d texts, got %d back", e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrAlignmentMismatch
}

// NewMismatchError 创建条数不一致错误
func NewMismatchError(want, got int) error {
	return &MismatchError{Want: want, Got: got}
}

// BatchError 单个批次最终失败，标明失败文本所在的章节与单元范围
type BatchError struct {
	Batch       int
	ChapterFrom int
	ChapterTo   int
	UnitFrom    int
	UnitTo      int
	Attempts    int
	Kind        string
	Cause       error
}

func (e *BatchError) Error() string {
	chapters := fmt.Sprintf("chapter %d", e.ChapterFrom)
	if e.ChapterTo != e.ChapterFrom {
		chapters = fmt.Sprintf("chapters %d-%d", e.ChapterFrom, e.ChapterTo)
	}
	return fmt.Sprintf("batch %d (%s, units %d-%d) failed after %d attempt(s) [%s]: %v",
		e.Batch, chapters, e.UnitFrom, e.UnitTo, e.Attempts, e.Kind, e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}

func newBatchError(b Batch, attempts int, kind string, cause error) *BatchError {
	cf, ct := b.ChapterRange()
	uf, ut := b.UnitRange()
	return &BatchError{
		Batch:       b.Index,
		ChapterFrom: cf,
		ChapterTo:   ct,
		UnitFrom:    uf,
		UnitTo:      ut,
		Attempts:    attempts,
		Kind:        kind,
		Cause:       cause,
	}
}

// RunError 一次运行的汇总错误：所有失败批次与结构违规
type RunError struct {
	RunID      string
	Batches    []*BatchError
	Violations []checker.Violation
	Partial    bool

	errs error
}

func newRunError(runID string, batches []*BatchError, violations []checker.Violation, partial bool) *RunError {
	e := &RunError{RunID: runID, Batches: batches, Violations: violations, Partial: partial}
	for _, be := range batches {
		e.errs = multierr.Append(e.errs, be)
	}
	if len(violations) > 0 {
		e.errs = multierr.Append(e.errs, &checker.ViolationError{Violations: violations})
	}
	return e
}

func (e *RunError) Error() string {
	var parts []string
	if len(e.Batches) > 0 {
		parts = append(parts, fmt.Sprintf("%d batch(es) failed", len(e.Batches)))
	}
	if len(e.Violations) > 0 {
		parts = append(parts, fmt.Sprintf("%d structural violation(s)", len(e.Violations)))
	}
	head := "translation run failed"
	if e.Partial {
		head = "translation run partially failed"
	}
	msg := fmt.Sprintf("%s (run %s): %s", head, e.RunID, strings.Join(parts, ", "))
	if e.errs != nil {
		msg += ": " + e.errs.Error()
	}
	return msg
}

// Unwrap 支持 errors.Is/As 穿透到各批次错误与结构违规
func (e *RunError) Unwrap() []error {
	head := ErrRunFailed
	if e.Partial {
		head = ErrPartialResult
	}
	return append([]error{head}, multierr.Errors(e.errs)...)
}
