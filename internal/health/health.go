package health

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"tempmail/gateway/internal/storage"
	"tempmail/gateway/internal/storage/redis"
)

// Checker 健康检查器
type Checker struct {
	handler healthcheck.Handler
	logger  *zap.Logger
}

// NewChecker 创建健康检查器，redisClient 可为 nil。
func NewChecker(store storage.Store, redisClient *redis.Client, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := healthcheck.NewHandler()

	handler.AddReadinessCheck("storage", func() error {
		return store.Health()
	})

	if redisClient != nil {
		handler.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
	}

	handler.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(500))

	return &Checker{handler: handler, logger: logger}
}

// LiveHandler 存活探针处理器
func (c *Checker) LiveHandler() http.Handler {
	return http.HandlerFunc(c.handler.LiveEndpoint)
}

// ReadyHandler 就绪探针处理器
func (c *Checker) ReadyHandler() http.Handler {
	return http.HandlerFunc(c.handler.ReadyEndpoint)
}
