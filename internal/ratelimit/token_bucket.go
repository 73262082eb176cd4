package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// 可重试错误的特征子串
var retryableMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"EOF",
	"connection refused",
	"429",
	"rate limit",
	"no such host",
	"服务器繁忙",
	"请求超过限额",
}

// TokenBucket 令牌桶限流器，按每分钟请求数平滑放行
// 外部识别服务(OCR、向量化)都有配额，调用方在发请求前先取令牌
type TokenBucket struct {
	mu         sync.Mutex
	ratePerSec float64
	capacity   float64
	tokens     float64
	lastRefill time.Time

	retryWait  time.Duration
	maxRetries int
	nowFunc    func() time.Time
}

// Option 定义令牌桶配置选项
type Option func(*TokenBucket)

// WithRetryPolicy 配置重试等待基数与最大重试次数
func WithRetryPolicy(wait time.Duration, maxRetries int) Option {
	return func(tb *TokenBucket) {
		tb.retryWait = wait
		tb.maxRetries = maxRetries
	}
}

// WithNowFunc 注入时钟
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(tb *TokenBucket) {
		if nowFunc != nil {
			tb.nowFunc = nowFunc
		}
	}
}

// NewTokenBucket 创建令牌桶，requestsPerMinute决定放行速率
// 桶容量默认为每分钟配额的一半，允许短促突发但不透支长期速率
func NewTokenBucket(requestsPerMinute int, options ...Option) *TokenBucket {
	capacity := requestsPerMinute / 2
	if capacity <= 0 {
		capacity = 1
	}

	bucket := &TokenBucket{
		ratePerSec: float64(requestsPerMinute) / 60.0,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		retryWait:  time.Second,
		maxRetries: 3,
		nowFunc:    time.Now,
	}
	bucket.lastRefill = bucket.nowFunc()

	for _, option := range options {
		option(bucket)
	}

	return bucket
}

// refill 按流逝时间补充令牌；调用方必须持有锁
func (tb *TokenBucket) refill() {
	now := tb.nowFunc()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now

	tb.tokens += elapsed * tb.ratePerSec
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 尝试立即取一个令牌，不等待
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 阻塞直到取得令牌或上下文取消
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.ratePerSec * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Do 取令牌后执行fn，对可重试错误做指数退避重试
func (tb *TokenBucket) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= tb.maxRetries; attempt++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		if err = fn(); err == nil {
			return nil
		}

		if !isRetryable(err) || attempt >= tb.maxRetries {
			return err
		}

		backoff := tb.retryWait * time.Duration(1<<uint(attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	for _, marker := range retryableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}