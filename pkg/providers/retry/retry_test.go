package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(10), "capped at max delay")

	p.BackoffFactor = 0.5
	assert.Equal(t, 200*time.Millisecond, p.Delay(1), "factor <= 1 falls back to 2")
}

func TestSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeNone},
		{"marked transient", Transient(errors.New("flaky")), ErrorTypeNetwork},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeNetwork},
		{"canceled", context.Canceled, ErrorTypePermanent},
		{"429", WithStatus(429, errors.New("slow down")), ErrorTypeRetryableHTTP},
		{"503", WithStatus(503, errors.New("unavailable")), ErrorTypeServerError},
		{"401", WithStatus(401, errors.New("bad key")), ErrorTypeClientError},
		{"url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("dial")}, ErrorTypeNetwork},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), ErrorTypeNetwork},
		{"message pattern", errors.New("i/o timeout while reading"), ErrorTypeNetwork},
		{"other", errors.New("invalid model"), ErrorTypePermanent},
		{"marked permanent", Permanent(errors.New("rate limiter: would exceed deadline")), ErrorTypePermanent},
		{"permanent over status", Permanent(WithStatus(503, errors.New("unavailable"))), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("x"))))
	assert.True(t, IsTransient(WithStatus(502, errors.New("bad gateway"))))
	assert.False(t, IsTransient(WithStatus(400, errors.New("bad request"))))
	assert.False(t, IsTransient(errors.New("alignment")))
	assert.False(t, IsTransient(Permanent(errors.New("rate limit wait"))))
	assert.Nil(t, Transient(nil))
	assert.Nil(t, Permanent(nil))
	assert.Nil(t, WithStatus(500, nil))
}
