package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const domainKeyPrefix = "tempmail:domains:"

// DomainCache 基于 Redis 的服务商域名二级缓存。
//
// 多实例部署时共享域名列表，减少对上游服务商的重复探测。
// 所有失败都只记日志并视作未命中，不向调用方传播。
type DomainCache struct {
	client *Client
	log    *zap.Logger
}

// NewDomainCache 创建 Redis 域名缓存。
func NewDomainCache(client *Client, log *zap.Logger) *DomainCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainCache{client: client, log: log}
}

// GetDomains 读取服务商的域名列表，未命中或解码失败返回 false。
func (c *DomainCache) GetDomains(ctx context.Context, provider string) ([]string, bool) {
	raw, err := c.client.rdb.Get(ctx, domainKeyPrefix+provider).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("读取域名缓存失败", zap.String("provider", provider), zap.Error(err))
		}
		return nil, false
	}

	var domains []string
	if err := json.Unmarshal([]byte(raw), &domains); err != nil {
		c.log.Warn("域名缓存解码失败", zap.String("provider", provider), zap.Error(err))
		return nil, false
	}
	return domains, true
}

// SetDomains 写入服务商的域名列表并设置过期时间。
func (c *DomainCache) SetDomains(ctx context.Context, provider string, domains []string, ttl time.Duration) {
	raw, err := json.Marshal(domains)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, domainKeyPrefix+provider, raw, ttl).Err(); err != nil {
		c.log.Warn("写入域名缓存失败", zap.String("provider", provider), zap.Error(err))
	}
}
