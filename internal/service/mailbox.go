package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempmail/gateway/internal/config"
	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/monitoring"
	"tempmail/gateway/internal/provider"
	"tempmail/gateway/internal/storage"
)

var (
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
)

const (
	usernameLength = 10
	passwordLength = 16

	lowerAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	mixedAlphabet = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// AttemptFailure 单个服务商的失败原因
type AttemptFailure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// CreateError 所有候选服务商都失败时的聚合错误。
type CreateError struct {
	Attempts []AttemptFailure
}

func (e *CreateError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Reason))
	}
	return "all providers exhausted: " + strings.Join(parts, "; ")
}

// MailboxService 封装邮箱生命周期的业务操作。
//
// 创建走服务商故障转移：按候选顺序逐个尝试，冷却中的跳过，
// 被限流的进入冷却并继续下一个，全部失败返回 CreateError。
type MailboxService struct {
	repo     storage.Store
	registry *provider.Registry
	tracker  *provider.Tracker
	domains  *provider.DomainCache
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu     sync.Mutex
	random *rand.Rand
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(
	repo storage.Store,
	registry *provider.Registry,
	tracker *provider.Tracker,
	domains *provider.DomainCache,
	cfg *config.Config,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *MailboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailboxService{
		repo:     repo,
		registry: registry,
		tracker:  tracker,
		domains:  domains,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		random:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateMailboxInput 定义创建邮箱所需的输入。
type CreateMailboxInput struct {
	Username string // 可选：缺省时随机生成
	Service  string // "auto" 或具体服务商 ID
	Domain   string // 可选：偏好域名
}

// Create 创建新的临时邮箱，带服务商故障转移。
func (s *MailboxService) Create(ctx context.Context, input CreateMailboxInput) (*domain.Mailbox, error) {
	username := input.Username
	if username == "" {
		username = s.randomString(lowerAlphabet, usernameLength)
	}
	password := s.randomString(mixedAlphabet, passwordLength)

	service := input.Service
	if service == "" {
		service = provider.ServiceAuto
	}

	candidates, err := s.registry.Candidates(service)
	if err != nil {
		return nil, err
	}

	failures := make([]AttemptFailure, 0, len(candidates))
	for _, client := range candidates {
		name := client.Name()

		if s.tracker.IsInCooldown(name) {
			failures = append(failures, AttemptFailure{Provider: name, Reason: "skipped: cooldown"})
			s.countAttempt(name, "skipped")
			continue
		}

		// 域名列表为空只是跳过该候选，不算服务商故障
		domainList := s.domains.Domains(ctx, client)
		if len(domainList) == 0 {
			failures = append(failures, AttemptFailure{Provider: name, Reason: "skipped: no domains available"})
			s.countAttempt(name, "skipped")
			continue
		}
		selected := pickDomain(domainList, input.Domain)
		address := fmt.Sprintf("%s@%s", username, selected)

		mailbox, err := s.attempt(ctx, client, address, username, selected, password)
		if err != nil {
			reason := err.Error()
			if provider.IsRateLimited(err) {
				s.tracker.RecordRateLimited(name, s.cfg.Provider.Cooldown())
				s.countAttempt(name, "rate_limited")
				reason = "rate limited"
			} else {
				s.tracker.RecordFailure(name)
				s.countAttempt(name, "failure")
			}
			s.logger.Warn("服务商创建邮箱失败",
				zap.String("provider", name),
				zap.String("address", address),
				zap.Error(err))
			failures = append(failures, AttemptFailure{Provider: name, Reason: reason})
			continue
		}

		if err := s.repo.SaveMailbox(mailbox); err != nil {
			return nil, err
		}
		s.tracker.RecordSuccess(name)
		s.countAttempt(name, "success")
		if s.metrics != nil {
			s.metrics.MailboxesCreated.Inc()
		}
		s.logger.Info("邮箱创建成功",
			zap.String("provider", name),
			zap.String("address", mailbox.Address),
			zap.Time("expires_at", mailbox.ExpiresAt))
		return mailbox, nil
	}

	return nil, &CreateError{Attempts: failures}
}

// attempt 对单个服务商执行 创建账户 → 认证 流程。
func (s *MailboxService) attempt(ctx context.Context, client provider.Client, address, username, selectedDomain, password string) (*domain.Mailbox, error) {
	account, err := client.CreateAccount(ctx, address, password)
	if err != nil {
		return nil, err
	}

	token := account.Token
	if token == "" {
		token, err = client.Authenticate(ctx, address, password)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	return &domain.Mailbox{
		ID:           uuid.NewString(),
		Address:      address,
		Password:     password,
		Token:        token,
		AccountID:    account.ID,
		Provider:     client.Name(),
		Username:     username,
		Domain:       selectedDomain,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.Mailbox.Lifetime),
		MessageCount: 0,
	}, nil
}

// Get 根据 ID 获取邮箱。
func (s *MailboxService) Get(id string) (*domain.Mailbox, error) {
	return s.repo.GetMailbox(id)
}

// List 返回全部活跃邮箱快照。
func (s *MailboxService) List() ([]domain.Mailbox, error) {
	return s.repo.ListMailboxes()
}

// Delete 删除指定邮箱；目标不存在时返回未找到。
func (s *MailboxService) Delete(id string) error {
	if _, err := s.repo.GetMailbox(id); err != nil {
		return err
	}
	if err := s.repo.DeleteMailbox(id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.MailboxesDeleted.Inc()
	}
	return nil
}

// Extend 重置邮箱的到期时间为 now + 生命周期，返回新到期时间。
//
// 重置而非累加：连续调用不会叠加延长。
func (s *MailboxService) Extend(id string) (time.Time, error) {
	if _, err := s.repo.GetMailbox(id); err != nil {
		return time.Time{}, err
	}
	expiresAt := time.Now().UTC().Add(s.cfg.Mailbox.Lifetime)
	if err := s.repo.UpdateMailboxExpiry(id, expiresAt); err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// Messages 通过所属服务商拉取邮箱的邮件列表，并刷新存储的邮件计数。
func (s *MailboxService) Messages(ctx context.Context, id string) ([]domain.MessageSummary, error) {
	mailbox, err := s.repo.GetMailbox(id)
	if err != nil {
		return nil, err
	}

	client, err := s.registry.Get(mailbox.Provider)
	if err != nil {
		return nil, err
	}

	messages, err := client.ListMessages(ctx, credentialFor(mailbox))
	if err != nil {
		s.recordOutcome(mailbox.Provider, err)
		return nil, err
	}
	s.tracker.RecordSuccess(mailbox.Provider)

	if len(messages) != mailbox.MessageCount {
		if err := s.repo.UpdateMessageCount(id, len(messages)); err != nil {
			s.logger.Warn("刷新邮件计数失败", zap.String("mailbox_id", id), zap.Error(err))
		}
	}
	return messages, nil
}

// MessageDetail 获取单封邮件的标准化详情。
func (s *MailboxService) MessageDetail(ctx context.Context, id, messageID string) (*domain.MessageDetail, error) {
	mailbox, err := s.repo.GetMailbox(id)
	if err != nil {
		return nil, err
	}

	client, err := s.registry.Get(mailbox.Provider)
	if err != nil {
		return nil, err
	}

	detail, err := client.GetMessage(ctx, credentialFor(mailbox), messageID)
	if err != nil {
		if errors.Is(err, provider.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		s.recordOutcome(mailbox.Provider, err)
		return nil, err
	}
	s.tracker.RecordSuccess(mailbox.Provider)
	return detail, nil
}

// Domains 返回指定服务商的域名列表；auto 模式下取注册顺序里第一个非空列表。
func (s *MailboxService) Domains(ctx context.Context, service string) (string, []string, error) {
	if service == "" {
		service = provider.ServiceAuto
	}
	if service != provider.ServiceAuto {
		client, err := s.registry.Get(service)
		if err != nil {
			return "", nil, err
		}
		return service, s.domains.Domains(ctx, client), nil
	}

	for _, client := range s.registry.All() {
		if list := s.domains.Domains(ctx, client); len(list) > 0 {
			return client.Name(), list, nil
		}
	}
	return provider.ServiceAuto, []string{}, nil
}

// ProviderStatus 导出所有服务商的健康快照。
func (s *MailboxService) ProviderStatus() []provider.ProviderStatus {
	return s.tracker.Snapshot(s.registry.Names())
}

func (s *MailboxService) recordOutcome(name string, err error) {
	if provider.IsRateLimited(err) {
		s.tracker.RecordRateLimited(name, s.cfg.Provider.Cooldown())
		return
	}
	s.tracker.RecordFailure(name)
}

func (s *MailboxService) countAttempt(name, outcome string) {
	if s.metrics != nil {
		s.metrics.ProviderAttempts.WithLabelValues(name, outcome).Inc()
	}
}

func (s *MailboxService) randomString(alphabet string, length int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[s.random.Intn(len(alphabet))]
	}
	return string(out)
}

// pickDomain 偏好域名在列表内则使用，否则取第一个。
func pickDomain(list []string, preferred string) string {
	if preferred != "" {
		for _, d := range list {
			if d == preferred {
				return d
			}
		}
	}
	return list[0]
}

// credentialFor 从邮箱记录组装服务商访问凭证。
func credentialFor(m *domain.Mailbox) provider.Credential {
	return provider.Credential{
		Token:    m.Token,
		Username: m.Username,
		Domain:   m.Domain,
	}
}
