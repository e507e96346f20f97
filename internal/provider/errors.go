package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMessageNotFound 邮件不存在（正常的否定结果，不算系统故障）
	ErrMessageNotFound = errors.New("message not found")
)

// ErrorKind 服务商错误分类
type ErrorKind string

const (
	// KindTransient 网络错误、超时、5xx，本地重试后仍可能恢复
	KindTransient ErrorKind = "transient"
	// KindRateLimited HTTP 429，触发服务商冷却
	KindRateLimited ErrorKind = "rate_limited"
	// KindPermanent 其他 4xx 或响应格式损坏，重试无意义
	KindPermanent ErrorKind = "permanent"
)

// Error 是服务商调用失败的统一错误类型。
type Error struct {
	Provider string
	Op       string
	Kind     ErrorKind
	Status   int // HTTP 状态码，非 HTTP 层错误为 0
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr 构造指定分类的服务商错误。
func wrapErr(provider, op string, kind ErrorKind, err error) *Error {
	return &Error{Provider: provider, Op: op, Kind: kind, Err: err}
}

// classifyStatus 按 HTTP 状态码归类错误。
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindTransient
	default:
		return KindPermanent
	}
}

// KindOf 提取错误的分类；非 *Error 的网络层错误一律视为 transient。
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsRateLimited 判断错误是否为限流。
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}

// statusOf 提取错误携带的 HTTP 状态码，没有则为 0。
func statusOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}

// Retryable 判断错误是否值得在本服务商内部重试。
//
// 限流错误也参与本地重试：单个子调用偶发的 429 在退避后常能通过，
// 重试耗尽后仍为限流才上报给编排层触发冷却。
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindRateLimited:
		return true
	default:
		return false
	}
}
