package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tempmail/gateway/internal/config"
	"tempmail/gateway/internal/health"
	"tempmail/gateway/internal/middleware"
	"tempmail/gateway/internal/monitoring"
	"tempmail/gateway/internal/service"
)

// Handler 聚合所有 HTTP 处理逻辑。
type Handler struct {
	mailboxes *service.MailboxService
	history   *service.HistoryService
	cfg       *config.Config
	startedAt time.Time
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	HistoryService *service.HistoryService
	HealthChecker  *health.Checker
	Metrics        *monitoring.Metrics
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(1 * 1024 * 1024))
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := &Handler{
		mailboxes: deps.MailboxService,
		history:   deps.HistoryService,
		cfg:       deps.Config,
		startedAt: time.Now().UTC(),
	}

	// 健康检查与指标
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapH(deps.HealthChecker.LiveHandler()))
		router.GET("/health/ready", gin.WrapH(deps.HealthChecker.ReadyHandler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	api := router.Group("/api")
	{
		api.GET("/", handler.serviceStatus)
		api.GET("/domains", handler.listDomains)

		emails := api.Group("/emails")
		{
			emails.POST("/create", handler.createMailbox)
			emails.GET("", handler.listMailboxes)

			// 历史路由必须先于 :id 参数路由注册
			emails.GET("/history/list", handler.listHistory)
			emails.GET("/history/:id/messages", handler.listHistoryMessages)
			emails.GET("/history/:id/messages/:messageId", handler.getHistoryMessage)
			emails.DELETE("/history/delete", handler.deleteHistory)

			emails.GET("/:id", handler.getMailbox)
			emails.DELETE("/:id", handler.deleteMailbox)
			emails.GET("/:id/messages", handler.listMessages)
			emails.GET("/:id/messages/:messageId", handler.getMessage)
			emails.POST("/:id/refresh", handler.listMessages)
			emails.POST("/:id/extend-time", handler.extendMailbox)
		}
	}

	return router
}
