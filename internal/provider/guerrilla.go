package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"tempmail/gateway/internal/domain"
)

const guerrillaBaseURL = "https://api.guerrillamail.com/ajax.php"

// guerrillaDomains Guerrilla Mail 的域名集合是固定的，API 不提供发现接口。
var guerrillaDomains = []string{
	"guerrillamail.com", "guerrillamail.net", "guerrillamail.org",
	"sharklasers.com", "spam4.me",
}

// GuerrillaClient 对接 Guerrilla Mail 的 ajax.php API。
//
// 会话语义：set_email_user 返回 sid_token，后续读信都凭它，
// 既是账户 ID 也是访问凭证。
type GuerrillaClient struct {
	baseURL string
	api     httpAPI
	retry   Backoff
}

// NewGuerrilla 创建 Guerrilla Mail 客户端。
func NewGuerrilla(opts Options) *GuerrillaClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = guerrillaBaseURL
	}
	return &GuerrillaClient{
		baseURL: baseURL,
		api:     newHTTPAPI(NameGuerrilla, opts.timeout(), opts.RatePerSecond),
		retry:   opts.retry(),
	}
}

func (c *GuerrillaClient) Name() string        { return NameGuerrilla }
func (c *GuerrillaClient) DisplayName() string { return "Guerrilla Mail" }

// FallbackDomains 返回固定域名列表的副本。
func (c *GuerrillaClient) FallbackDomains() []string {
	out := make([]string, len(guerrillaDomains))
	copy(out, guerrillaDomains)
	return out
}

// ListDomains 探测 API 可用性后返回固定域名集合。
func (c *GuerrillaClient) ListDomains(ctx context.Context) ([]string, error) {
	var probe struct {
		EmailAddr string `json:"email_addr"`
	}
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_domains",
			c.baseURL+"?f=get_email_address", nil, &probe)
	})
	if err != nil {
		return nil, err
	}
	return c.FallbackDomains(), nil
}

// CreateAccount 通过 set_email_user 建立会话，sid_token 即账户与凭证。
func (c *GuerrillaClient) CreateAccount(ctx context.Context, address, _ string) (*Account, error) {
	username := address
	for i := range address {
		if address[i] == '@' {
			username = address[:i]
			break
		}
	}

	var payload struct {
		EmailAddr string `json:"email_addr"`
		SidToken  string `json:"sid_token"`
	}
	endpoint := fmt.Sprintf("%s?f=set_email_user&email_user=%s&lang=en&site=guerrillamail.com",
		c.baseURL, url.QueryEscape(username))
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "create_account", endpoint, nil, &payload)
	})
	if err != nil {
		return nil, err
	}

	sid := payload.SidToken
	if sid == "" {
		sid = uuid.NewString()
	}
	return &Account{ID: sid, Token: sid}, nil
}

// Authenticate sid_token 在注册时已经返回，这里只兜底。
func (c *GuerrillaClient) Authenticate(_ context.Context, address, _ string) (string, error) {
	return address, nil
}

// guerrillaMessage Guerrilla 的原生邮件结构
type guerrillaMessage struct {
	MailID        json.Number `json:"mail_id"`
	MailFrom      string      `json:"mail_from"`
	MailSubject   string      `json:"mail_subject"`
	MailTimestamp json.Number `json:"mail_timestamp"`
	MailBody      string      `json:"mail_body"`
}

func (m *guerrillaMessage) summary() domain.MessageSummary {
	from := m.MailFrom
	if from == "" {
		from = "unknown"
	}
	subject := m.MailSubject
	if subject == "" {
		subject = "No Subject"
	}
	createdAt := m.MailTimestamp.String()
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}
	return domain.MessageSummary{
		ID:        m.MailID.String(),
		From:      domain.Sender{Address: from, Name: from},
		Subject:   subject,
		CreatedAt: createdAt,
	}
}

// ListMessages 列出收件箱并转换为标准形态。
func (c *GuerrillaClient) ListMessages(ctx context.Context, cred Credential) ([]domain.MessageSummary, error) {
	var payload struct {
		List []guerrillaMessage `json:"list"`
	}
	endpoint := fmt.Sprintf("%s?f=get_email_list&offset=0&sid_token=%s",
		c.baseURL, url.QueryEscape(cred.Token))
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "list_messages", endpoint, nil, &payload)
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.MessageSummary, 0, len(payload.List))
	for i := range payload.List {
		out = append(out, payload.List[i].summary())
	}
	return out, nil
}

// GetMessage 获取单封邮件详情。
//
// Guerrilla 不区分 html 与 text，mail_body 同时填入两个字段。
func (c *GuerrillaClient) GetMessage(ctx context.Context, cred Credential, messageID string) (*domain.MessageDetail, error) {
	var msg guerrillaMessage
	endpoint := fmt.Sprintf("%s?f=fetch_email&email_id=%s&sid_token=%s",
		c.baseURL, url.QueryEscape(messageID), url.QueryEscape(cred.Token))
	err := c.retry.Do(ctx, func() error {
		return c.api.getJSON(ctx, "get_message", endpoint, nil, &msg)
	})
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	summary := msg.summary()
	if summary.ID == "" {
		summary.ID = messageID
	}
	body := domain.NormalizeBody(msg.MailBody)
	return &domain.MessageDetail{
		MessageSummary: summary,
		Text:           body,
		HTML:           body,
	}, nil
}
