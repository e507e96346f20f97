package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tempmail/gateway/internal/config"
	"tempmail/gateway/internal/health"
	"tempmail/gateway/internal/logger"
	"tempmail/gateway/internal/monitoring"
	"tempmail/gateway/internal/provider"
	"tempmail/gateway/internal/service"
	"tempmail/gateway/internal/storage"
	"tempmail/gateway/internal/storage/memory"
	"tempmail/gateway/internal/storage/redis"
	sqlstore "tempmail/gateway/internal/storage/sql"
	httptransport "tempmail/gateway/internal/transport/http"
)

// main 启动临时邮箱网关：HTTP API + 后台过期清扫。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting tempmail gateway",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 存储层：配置了数据库则用 SQL，否则内存
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// Redis 域名二级缓存（可选）
	var redisClient *redis.Client
	var remoteCache provider.RemoteCache
	if cfg.Redis.Address != "" {
		redisClient, err = redis.New(&cfg.Redis, log)
		if err != nil {
			log.Warn("Redis unavailable, domain cache is local only", zap.Error(err))
		} else {
			remoteCache = redis.NewDomainCache(redisClient, log)
			defer redisClient.Close()
		}
	}

	// 服务商注册表
	opts := provider.Options{
		Timeout: cfg.Provider.RequestTimeout,
		Retry: provider.Backoff{
			Attempts:  cfg.Provider.RetryAttempts,
			BaseDelay: cfg.Provider.RetryBaseDelay,
		},
		RatePerSecond: cfg.Provider.RatePerSecond,
	}
	registry := provider.NewRegistry()
	registry.Register(provider.NewMailTM(opts))
	registry.Register(provider.NewMailGW(opts))
	registry.Register(provider.NewOneSecMail(opts))
	registry.Register(provider.NewGuerrilla(opts))
	log.Info("providers registered", zap.Strings("providers", registry.Names()))

	tracker := provider.NewTracker()
	domainCache := provider.NewDomainCache(cfg.Provider.DomainCacheTTL, remoteCache, log)

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, redisClient, log)

	mailboxService := service.NewMailboxService(store, registry, tracker, domainCache, cfg, log, metrics)
	historyService := service.NewHistoryService(store, registry, log)
	sweeper := service.NewSweeper(store, mailboxService, cfg.Mailbox.SweepInterval, cfg.Mailbox.ReplaceOnEmpty, log, metrics)

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MailboxService: mailboxService,
		HistoryService: historyService,
		HealthChecker:  healthChecker,
		Metrics:        metrics,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 过期清扫 goroutine，ctx 取消前永不退出
	group.Go(func() error {
		if err := sweeper.Run(groupCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	// 活跃邮箱数指标刷新
	group.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if count, err := store.CountMailboxes(); err == nil {
					metrics.UpdateMailboxesActive(count)
				}
			}
		}
	})

	// 优雅关闭
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
