package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"tempmail/gateway/internal/domain"
)

// 服务商标识
const (
	NameMailTM     = "mailtm"
	NameMailGW     = "mailgw"
	NameOneSecMail = "1secmail"
	NameGuerrilla  = "guerrilla"
)

// ServiceAuto 表示不指定服务商，由编排层随机选择。
const ServiceAuto = "auto"

var (
	// ErrUnknownProvider 请求了未注册的服务商
	ErrUnknownProvider = errors.New("unknown provider")
)

// Credential 访问某个已建邮箱所需的凭证。
//
// mailtm / mailgw / guerrilla 只看 Token；
// 1secmail 无令牌机制，通过 Username + Domain 定位邮箱。
type Credential struct {
	Token    string
	Username string
	Domain   string
}

// Account 注册邮箱后服务商返回的账户信息。
//
// 部分服务商（1secmail、guerrilla）在注册时即返回可用凭证，
// Token 非空时编排层跳过独立的认证步骤。
type Account struct {
	ID    string
	Token string
}

// Client 是所有临时邮箱服务商的统一能力接口。
//
// 所有方法只做出站网络调用，不落任何本地状态；
// 失败时返回 *Error 以便编排层按分类处理。
type Client interface {
	// Name 返回服务商标识（注册表键）。
	Name() string
	// DisplayName 返回用于展示的服务商名称。
	DisplayName() string
	// ListDomains 拉取当前可用的域名列表。
	ListDomains(ctx context.Context) ([]string, error)
	// FallbackDomains 返回静态兜底域名；没有兜底的服务商返回 nil。
	FallbackDomains() []string
	// CreateAccount 注册邮箱；无注册步骤的服务商直接合成账户返回。
	CreateAccount(ctx context.Context, address, password string) (*Account, error)
	// Authenticate 换取访问凭证；无认证机制的服务商返回地址本身。
	Authenticate(ctx context.Context, address, password string) (string, error)
	// ListMessages 列出收件箱并统一为标准形态。
	ListMessages(ctx context.Context, cred Credential) ([]domain.MessageSummary, error)
	// GetMessage 获取单封邮件详情；不存在时返回 ErrMessageNotFound。
	GetMessage(ctx context.Context, cred Credential, messageID string) (*domain.MessageDetail, error)
}

// Registry 按标识索引的服务商注册表。
//
// 新增服务商只需实现 Client 并注册，不需要改动任何分发逻辑。
type Registry struct {
	order   []string
	clients map[string]Client
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register 注册服务商，注册顺序即 "auto" 之外场景的默认顺序。
func (r *Registry) Register(c Client) {
	if _, ok := r.clients[c.Name()]; ok {
		return
	}
	r.order = append(r.order, c.Name())
	r.clients[c.Name()] = c
}

// Get 按标识查找服务商，未注册时返回 ErrUnknownProvider。
func (r *Registry) Get(name string) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return c, nil
}

// Names 返回已注册服务商标识的副本。
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All 按注册顺序返回全部服务商。
func (r *Registry) All() []Client {
	out := make([]Client, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.clients[name])
	}
	return out
}

// Candidates 根据请求的 service 构造候选顺序。
//
// 指定服务商时返回单元素列表；"auto"（或空）返回均匀打乱的
// 全量列表，用随机顺序分摊各服务商的压力。
func (r *Registry) Candidates(service string) ([]Client, error) {
	if service == "" || service == ServiceAuto {
		out := r.All()
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
		return out, nil
	}

	c, ok := r.clients[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, service)
	}
	return []Client{c}, nil
}

// Options 构造具体服务商客户端时的公共参数。
type Options struct {
	// BaseURL 覆盖默认 API 地址，主要用于测试
	BaseURL string
	// Timeout 单次出站请求超时
	Timeout time.Duration
	// Retry 子调用的重试策略
	Retry Backoff
	// RatePerSecond 出站请求速率上限，<=0 表示不限速
	RatePerSecond float64
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 10 * time.Second
	}
	return o.Timeout
}

func (o Options) retry() Backoff {
	if o.Retry.Attempts <= 0 {
		return DefaultBackoff
	}
	return o.Retry
}
