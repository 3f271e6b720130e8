// Package retry 瞬时错误分类与指数退避策略
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrTransient 可重试的瞬时错误（超时、限流、传输错误）
var ErrTransient = errors.New("transient failure")

// ErrPermanent 明确不应重试的错误，优先于其余分类
var ErrPermanent = errors.New("permanent failure")

// Policy 重试策略
type Policy struct {
	// 最大重试次数（不含第一次调用）
	MaxRetries int

	// 初始延迟时间
	InitialDelay time.Duration

	// 最大延迟时间
	MaxDelay time.Duration

	// 退避因子（指数退避）
	BackoffFactor float64
}

// DefaultPolicy 返回默认重试策略
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Delay 计算第 attempt 次重试前的等待时间（attempt 从 0 开始）
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	if attempt > 0 {
		factor := p.BackoffFactor
		if factor <= 1.0 {
			factor = 2.0
		}
		delay = time.Duration(float64(delay) * math.Pow(factor, float64(attempt)))
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Sleep 等待 d，上下文取消时提前返回
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone          ErrorType = iota
	ErrorTypeNetwork                 // 网络瞬时错误
	ErrorTypeRetryableHTTP           // 可重试的HTTP错误（429）
	ErrorTypeClientError             // 客户端错误（4xx）
	ErrorTypeServerError             // 服务端错误（5xx）
	ErrorTypePermanent               // 永久性错误
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNone:
		return "none"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryableHTTP:
		return "retryable_http"
	case ErrorTypeClientError:
		return "client_error"
	case ErrorTypeServerError:
		return "server_error"
	default:
		return "permanent"
	}
}

// StatusError 带 HTTP 状态码的后端错误
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// WithStatus 给错误附加 HTTP 状态码
func WithStatus(code int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{StatusCode: code, Err: err}
}

// Transient 将错误标记为可重试
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent 将错误标记为不可重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Classify 分类错误
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeNone
	}
	// 调用方自身取消不重试
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return ErrorTypePermanent
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == 429:
			return ErrorTypeRetryableHTTP
		case se.StatusCode == 408:
			return ErrorTypeNetwork
		case se.StatusCode >= 500:
			return ErrorTypeServerError
		case se.StatusCode >= 400:
			return ErrorTypeClientError
		}
	}

	if isNetworkError(err) {
		return ErrorTypeNetwork
	}
	return ErrorTypePermanent
}

// IsTransient 判断错误是否值得重试
func IsTransient(err error) bool {
	switch Classify(err) {
	case ErrorTypeNetwork, ErrorTypeRetryableHTTP, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// isNetworkError 判断是否为网络错误
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// 检查错误消息模式
	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"rate limit",
		"i/o timeout",
		"unexpected eof",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
