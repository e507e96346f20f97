package provider

import (
	"sync"
	"time"
)

// ProviderStatus 单个服务商的健康快照
type ProviderStatus struct {
	Name          string    `json:"name"`
	InCooldown    bool      `json:"in_cooldown"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
	SuccessCount  int64     `json:"success_count"`
	FailureCount  int64     `json:"failure_count"`
	RateLimited   int64     `json:"rate_limited_count"`
}

type providerHealth struct {
	cooldownUntil time.Time
	successCount  int64
	failureCount  int64
	rateLimited   int64
}

// Tracker 记录服务商的限流冷却窗口与成败计数。
//
// 被限流的服务商在冷却期内会被编排器跳过，成功一次即解除冷却。
type Tracker struct {
	mu    sync.Mutex
	state map[string]*providerHealth
	now   func() time.Time
}

// NewTracker 创建健康追踪器。
func NewTracker() *Tracker {
	return &Tracker{
		state: make(map[string]*providerHealth),
		now:   time.Now,
	}
}

func (t *Tracker) entry(name string) *providerHealth {
	h, ok := t.state[name]
	if !ok {
		h = &providerHealth{}
		t.state[name] = h
	}
	return h
}

// IsInCooldown 判断服务商当前是否处于冷却期。
func (t *Tracker) IsInCooldown(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.state[name]
	if !ok {
		return false
	}
	return h.cooldownUntil.After(t.now())
}

// RecordRateLimited 标记服务商被限流，进入冷却期。
func (t *Tracker) RecordRateLimited(name string, cooldown time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.entry(name)
	h.cooldownUntil = t.now().Add(cooldown)
	h.rateLimited++
	h.failureCount++
}

// RecordSuccess 记录一次成功并立即解除冷却。
func (t *Tracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.entry(name)
	h.cooldownUntil = time.Time{}
	h.successCount++
}

// RecordFailure 记录一次非限流失败，不触发冷却。
func (t *Tracker) RecordFailure(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(name).failureCount++
}

// Snapshot 按指定顺序导出所有服务商的健康状态。
func (t *Tracker) Snapshot(names []string) []ProviderStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		status := ProviderStatus{Name: name}
		if h, ok := t.state[name]; ok {
			status.SuccessCount = h.successCount
			status.FailureCount = h.failureCount
			status.RateLimited = h.rateLimited
			if h.cooldownUntil.After(now) {
				status.InCooldown = true
				status.CooldownUntil = h.cooldownUntil
			}
		}
		out = append(out, status)
	}
	return out
}
