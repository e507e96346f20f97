package provider

import (
	"context"
	"time"
)

// Backoff 指数退避重试策略。
//
// 第 n 次失败后等待 BaseDelay * 2^n（1s、2s、4s...），
// 只重试 Retryable 返回 true 的错误。
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultBackoff 与上游各调用点共用的默认策略。
var DefaultBackoff = Backoff{Attempts: 3, BaseDelay: time.Second}

// Do 重复执行 fn 直到成功、错误不可重试或次数耗尽。
//
// 返回最后一次的错误；ctx 取消时立即停止等待并返回 ctx.Err()。
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		delay := b.BaseDelay << uint(i)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
