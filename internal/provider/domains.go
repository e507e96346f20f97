package provider

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RemoteCache 可选的二级域名缓存（通常由 Redis 实现）。
type RemoteCache interface {
	GetDomains(ctx context.Context, provider string) ([]string, bool)
	SetDomains(ctx context.Context, provider string, domains []string, ttl time.Duration)
}

type domainEntry struct {
	domains   []string
	fetchedAt time.Time
}

// DomainCache 带 TTL 的服务商域名缓存。
//
// 缓存命中直接返回；过期则向上游刷新，刷新失败时降级：
// 先用过期的旧值，再退到静态兜底域名，永不因缓存层报错。
type DomainCache struct {
	mu      sync.Mutex
	entries map[string]*domainEntry
	ttl     time.Duration
	remote  RemoteCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewDomainCache 创建域名缓存，remote 可为 nil。
func NewDomainCache(ttl time.Duration, remote RemoteCache, logger *zap.Logger) *DomainCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainCache{
		entries: make(map[string]*domainEntry),
		ttl:     ttl,
		remote:  remote,
		logger:  logger,
		now:     time.Now,
	}
}

// Domains 返回指定服务商的可用域名列表。
func (c *DomainCache) Domains(ctx context.Context, client Client) []string {
	name := client.Name()

	c.mu.Lock()
	entry, ok := c.entries[name]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		domains := entry.domains
		c.mu.Unlock()
		return domains
	}
	c.mu.Unlock()

	if c.remote != nil {
		if domains, ok := c.remote.GetDomains(ctx, name); ok && len(domains) > 0 {
			c.store(name, domains)
			return domains
		}
	}

	domains, err := client.ListDomains(ctx)
	if err == nil && len(domains) > 0 {
		c.store(name, domains)
		if c.remote != nil {
			c.remote.SetDomains(ctx, name, domains, c.ttl)
		}
		return domains
	}
	if err != nil {
		c.logger.Warn("刷新服务商域名失败，使用降级数据",
			zap.String("provider", name), zap.Error(err))
	}

	// 刷新失败：过期旧值优先于静态兜底
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[name]; ok && len(entry.domains) > 0 {
		return entry.domains
	}
	return client.FallbackDomains()
}

// Invalidate 清除指定服务商的缓存条目。
func (c *DomainCache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

func (c *DomainCache) store(name string, domains []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &domainEntry{domains: domains, fetchedAt: c.now()}
}
