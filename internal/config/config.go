package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// MailboxConfig 定义临时邮箱的生命周期配置
type MailboxConfig struct {
	Lifetime       time.Duration // 邮箱生存窗口，默认 10 分钟，延时即重置为 now + Lifetime
	SweepInterval  time.Duration // 过期清理任务的执行间隔，默认 30 秒
	ReplaceOnEmpty bool          // 活跃集合清空后是否自动补建一个邮箱，默认关闭
}

// ProviderConfig 定义对外部邮箱服务商的访问策略
type ProviderConfig struct {
	RequestTimeout  time.Duration // 单次出站请求超时，默认 10 秒
	RetryAttempts   int           // 单服务商内部重试次数，默认 3
	RetryBaseDelay  time.Duration // 重试基础退避时长，默认 1 秒（1s/2s/4s）
	CooldownSeconds int           // 服务商被限流后的冷却时长（秒），默认 60
	DomainCacheTTL  time.Duration // 域名列表缓存时长，默认 300 秒
	RatePerSecond   float64       // 单服务商出站请求速率上限，默认 5 req/s
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空表示不使用 Redis 共享域名缓存
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server   ServerConfig
	Mailbox  MailboxConfig
	Provider ProviderConfig
	CORS     CORSConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//   1. 系统环境变量（最高优先级）
//   2. .env 文件（如果存在）
//   3. 默认值
//
// 环境变量前缀: TEMPMAIL_
// 例如: TEMPMAIL_SERVER_PORT, TEMPMAIL_PROVIDER_COOLDOWN_SECONDS
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("tempmail")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("mailbox.lifetime", "10m")
	viper.SetDefault("mailbox.sweep_interval", "30s")
	viper.SetDefault("mailbox.replace_on_empty", false)
	viper.SetDefault("provider.request_timeout", "10s")
	viper.SetDefault("provider.retry_attempts", 3)
	viper.SetDefault("provider.retry_base_delay", "1s")
	viper.SetDefault("provider.cooldown_seconds", 60)
	viper.SetDefault("provider.domain_cache_ttl", "300s")
	viper.SetDefault("provider.rate_per_second", 5.0)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	lifetime, err := time.ParseDuration(viper.GetString("mailbox.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.lifetime: %w", err)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("mailbox.lifetime must be positive")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("mailbox.sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid mailbox.sweep_interval: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("mailbox.sweep_interval must be positive")
	}

	requestTimeout, err := time.ParseDuration(viper.GetString("provider.request_timeout"))
	if err != nil {
		requestTimeout = 10 * time.Second
	}

	retryBaseDelay, err := time.ParseDuration(viper.GetString("provider.retry_base_delay"))
	if err != nil {
		retryBaseDelay = time.Second
	}

	domainCacheTTL, err := time.ParseDuration(viper.GetString("provider.domain_cache_ttl"))
	if err != nil {
		domainCacheTTL = 300 * time.Second
	}

	retryAttempts := viper.GetInt("provider.retry_attempts")
	if retryAttempts <= 0 {
		retryAttempts = 3
	}

	cooldownSeconds := viper.GetInt("provider.cooldown_seconds")
	if cooldownSeconds <= 0 {
		cooldownSeconds = 60
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Mailbox: MailboxConfig{
			Lifetime:       lifetime,
			SweepInterval:  sweepInterval,
			ReplaceOnEmpty: viper.GetBool("mailbox.replace_on_empty"),
		},
		Provider: ProviderConfig{
			RequestTimeout:  requestTimeout,
			RetryAttempts:   retryAttempts,
			RetryBaseDelay:  retryBaseDelay,
			CooldownSeconds: cooldownSeconds,
			DomainCacheTTL:  domainCacheTTL,
			RatePerSecond:   viper.GetFloat64("provider.rate_per_second"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// Cooldown 返回服务商冷却时长。
func (c *ProviderConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//   1. 当前目录的 .env
//   2. 父目录的 .env（从子目录运行时）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
