package provider

import (
	"context"
	"fmt"
	"net/http"

	"tempmail/gateway/internal/domain"
)

// 默认 API 地址
const (
	mailTMBaseURL = "https://api.mail.tm"
	mailGWBaseURL = "https://api.mail.gw"
)

// HydraClient 对接 hydra 风格 JSON-API 的服务商。
//
// Mail.tm 与 Mail.gw 共用同一套接口（/domains、/accounts、/token、
// /messages），集合响应包在 "hydra:member" 里，仅 API 地址不同。
type HydraClient struct {
	name    string
	display string
	baseURL string
	api     httpAPI
	retry   Backoff
}

// NewMailTM 创建 Mail.tm 客户端。
func NewMailTM(opts Options) *HydraClient {
	return newHydraClient(NameMailTM, "Mail.tm", mailTMBaseURL, opts)
}

// NewMailGW 创建 Mail.gw 客户端。
func NewMailGW(opts Options) *HydraClient {
	return newHydraClient(NameMailGW, "Mail.gw", mailGWBaseURL, opts)
}

func newHydraClient(name, display, defaultBaseURL string, opts Options) *HydraClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HydraClient{
		name:    name,
		display: display,
		baseURL: baseURL,
		api:     newHTTPAPI(name, opts.timeout(), opts.RatePerSecond),
		retry:   opts.retry(),
	}
}

func (c *HydraClient) Name() string        { return c.name }
func (c *HydraClient) DisplayName() string { return c.display }

// FallbackDomains hydra 系服务商的域名来自 API 发现，没有静态兜底。
func (c *HydraClient) FallbackDomains() []string { return nil }

// hydraDomains /domains 响应
type hydraDomains struct {
	Member []struct {
		Domain string `json:"domain"`
	} `json:"hydra:member"`
}

// ListDomains 拉取可用域名列表。
func (c *HydraClient) ListDomains(ctx context.Context) ([]string, error) {
	var payload hydraDomains
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_domains", c.baseURL+"/domains", nil, &payload)
	})
	if err != nil {
		return nil, err
	}

	domains := make([]string, 0, len(payload.Member))
	for _, m := range payload.Member {
		domains = append(domains, m.Domain)
	}
	return domains, nil
}

// CreateAccount 注册邮箱账户。
func (c *HydraClient) CreateAccount(ctx context.Context, address, password string) (*Account, error) {
	var payload struct {
		ID string `json:"id"`
	}
	body := map[string]string{"address": address, "password": password}
	err := c.retry.Do(ctx, func() error {
		return c.api.postJSON(ctx, "create_account", c.baseURL+"/accounts", body, &payload)
	})
	if err != nil {
		return nil, err
	}
	return &Account{ID: payload.ID}, nil
}

// Authenticate 用地址和密码换取 Bearer Token。
func (c *HydraClient) Authenticate(ctx context.Context, address, password string) (string, error) {
	var payload struct {
		Token string `json:"token"`
	}
	body := map[string]string{"address": address, "password": password}
	err := c.retry.Do(ctx, func() error {
		return c.api.postJSON(ctx, "authenticate", c.baseURL+"/token", body, &payload)
	})
	if err != nil {
		return "", err
	}
	return payload.Token, nil
}

// hydraMessage 列表与详情共用的邮件结构
type hydraMessage struct {
	ID   string `json:"id"`
	From struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"from"`
	Subject   string      `json:"subject"`
	CreatedAt string      `json:"createdAt"`
	Text      interface{} `json:"text"`
	HTML      interface{} `json:"html"`
}

func (m *hydraMessage) summary() domain.MessageSummary {
	return domain.MessageSummary{
		ID:        m.ID,
		From:      domain.Sender{Address: m.From.Address, Name: m.From.Name},
		Subject:   m.Subject,
		CreatedAt: m.CreatedAt,
	}
}

// ListMessages 列出收件箱。
func (c *HydraClient) ListMessages(ctx context.Context, cred Credential) ([]domain.MessageSummary, error) {
	var payload struct {
		Member []hydraMessage `json:"hydra:member"`
	}
	headers := map[string]string{"Authorization": "Bearer " + cred.Token}
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_messages", c.baseURL+"/messages", headers, &payload)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.MessageSummary, 0, len(payload.Member))
	for i := range payload.Member {
		out = append(out, payload.Member[i].summary())
	}
	return out, nil
}

// GetMessage 获取单封邮件详情。
//
// 上游的 text 字段是裸字符串、html 是数组，统一收敛为数组形态。
func (c *HydraClient) GetMessage(ctx context.Context, cred Credential, messageID string) (*domain.MessageDetail, error) {
	var payload hydraMessage
	headers := map[string]string{"Authorization": "Bearer " + cred.Token}
	url := fmt.Sprintf("%s/messages/%s", c.baseURL, messageID)
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "get_message", url, headers, &payload)
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	return &domain.MessageDetail{
		MessageSummary: payload.summary(),
		Text:           domain.NormalizeBody(payload.Text),
		HTML:           domain.NormalizeBody(payload.HTML),
	}, nil
}
