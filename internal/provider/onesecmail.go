package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tempmail/gateway/internal/domain"
)

const oneSecMailBaseURL = "https://www.1secmail.com/api/v1"

// oneSecFallbackDomains 1secmail 的静态兜底域名，API 不可用时仍可建箱。
var oneSecFallbackDomains = []string{
	"1secmail.com", "1secmail.org", "1secmail.net",
	"wwjmp.com", "esiix.com", "xojxe.com", "yoggm.com",
}

// oneSecBrowserHeaders 1secmail 会对非浏览器流量返回 403，带上浏览器头绕过。
var oneSecBrowserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.1secmail.com/",
	"Origin":          "https://www.1secmail.com",
}

// OneSecMailClient 对接 1secmail 的查询串式 GET API。
//
// 1secmail 没有注册和认证概念：任何地址天然存在，
// 读信直接用 login + domain 定位，凭证即地址本身。
type OneSecMailClient struct {
	baseURL string
	api     httpAPI
	retry   Backoff
}

// NewOneSecMail 创建 1secmail 客户端。
func NewOneSecMail(opts Options) *OneSecMailClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = oneSecMailBaseURL
	}
	return &OneSecMailClient{
		baseURL: baseURL,
		api:     newHTTPAPI(NameOneSecMail, opts.timeout(), opts.RatePerSecond),
		retry:   opts.retry(),
	}
}

func (c *OneSecMailClient) Name() string        { return NameOneSecMail }
func (c *OneSecMailClient) DisplayName() string { return "1secmail" }

// FallbackDomains 返回静态兜底域名列表的副本。
func (c *OneSecMailClient) FallbackDomains() []string {
	out := make([]string, len(oneSecFallbackDomains))
	copy(out, oneSecFallbackDomains)
	return out
}

// ListDomains 拉取可用域名列表。
func (c *OneSecMailClient) ListDomains(ctx context.Context) ([]string, error) {
	var domains []string
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_domains",
			c.baseURL+"/?action=getDomainList", oneSecBrowserHeaders, &domains)
	})
	if err != nil {
		return nil, err
	}
	return domains, nil
}

// CreateAccount 合成账户，无需任何远端调用。
func (c *OneSecMailClient) CreateAccount(_ context.Context, address, _ string) (*Account, error) {
	// 地址即身份：账户 ID 和凭证都是地址本身
	return &Account{ID: address, Token: address}, nil
}

// Authenticate 无认证机制，地址即凭证。
func (c *OneSecMailClient) Authenticate(_ context.Context, address, _ string) (string, error) {
	return address, nil
}

// oneSecMessage 1secmail 的原生邮件结构
type oneSecMessage struct {
	ID       json.Number `json:"id"`
	From     string      `json:"from"`
	Subject  string      `json:"subject"`
	Date     string      `json:"date"`
	TextBody string      `json:"textBody"`
	HTMLBody string      `json:"htmlBody"`
}

func (m *oneSecMessage) summary() domain.MessageSummary {
	from := m.From
	if from == "" {
		from = "unknown"
	}
	subject := m.Subject
	if subject == "" {
		subject = "No Subject"
	}
	createdAt := m.Date
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	return domain.MessageSummary{
		ID:        m.ID.String(),
		From:      domain.Sender{Address: from, Name: from},
		Subject:   subject,
		CreatedAt: createdAt,
	}
}

// ListMessages 列出收件箱并转换为标准形态。
func (c *OneSecMailClient) ListMessages(ctx context.Context, cred Credential) ([]domain.MessageSummary, error) {
	var messages []oneSecMessage
	endpoint := fmt.Sprintf("%s/?action=getMessages&login=%s&domain=%s",
		c.baseURL, url.QueryEscape(cred.Username), url.QueryEscape(cred.Domain))
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_messages", endpoint, oneSecBrowserHeaders, &messages)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.MessageSummary, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].summary())
	}
	return out, nil
}

// GetMessage 获取单封邮件详情。
//
// htmlBody / textBody 是裸字符串，为空时输出空数组而非 [""]。
func (c *OneSecMailClient) GetMessage(ctx context.Context, cred Credential, messageID string) (*domain.MessageDetail, error) {
	var msg oneSecMessage
	endpoint := fmt.Sprintf("%s/?action=readMessage&login=%s&domain=%s&id=%s",
		c.baseURL, url.QueryEscape(cred.Username), url.QueryEscape(cred.Domain), url.QueryEscape(messageID))
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "get_message", endpoint, oneSecBrowserHeaders, &msg)
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	return &domain.MessageDetail{
		MessageSummary: msg.summary(),
		Text:           domain.NormalizeBody(msg.TextBody),
		HTML:           domain.NormalizeBody(msg.HTMLBody),
	}, nil
}
