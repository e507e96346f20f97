package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/provider"
	"tempmail/gateway/internal/storage"
)

// HistoryService 封装历史邮箱的查询与清理操作。
//
// 历史记录保留创建时的凭证，部分服务商过期后仍可读信（尽力而为）。
type HistoryService struct {
	repo     storage.Store
	registry *provider.Registry
	logger   *zap.Logger
}

// NewHistoryService 创建历史邮箱服务。
func NewHistoryService(repo storage.Store, registry *provider.Registry, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, registry: registry, logger: logger}
}

// List 返回全部历史记录，最近过期的在前。
func (s *HistoryService) List() ([]domain.HistoryMailbox, error) {
	return s.repo.ListHistory()
}

// Get 根据 ID 获取历史记录。
func (s *HistoryService) Get(id string) (*domain.HistoryMailbox, error) {
	return s.repo.GetHistory(id)
}

// Delete 删除指定历史记录，ids 为空时清空全部，返回删除数量。
func (s *HistoryService) Delete(ids []string) (int, error) {
	return s.repo.DeleteHistory(ids)
}

// Messages 用归档凭证向原服务商拉取历史邮箱的邮件列表。
func (s *HistoryService) Messages(ctx context.Context, id string) ([]domain.MessageSummary, error) {
	record, err := s.repo.GetHistory(id)
	if err != nil {
		return nil, err
	}

	client, err := s.registry.Get(record.Provider)
	if err != nil {
		return nil, err
	}
	return client.ListMessages(ctx, historyCredential(record))
}

// MessageDetail 获取历史邮箱中单封邮件的详情。
func (s *HistoryService) MessageDetail(ctx context.Context, id, messageID string) (*domain.MessageDetail, error) {
	record, err := s.repo.GetHistory(id)
	if err != nil {
		return nil, err
	}

	client, err := s.registry.Get(record.Provider)
	if err != nil {
		return nil, err
	}

	detail, err := client.GetMessage(ctx, historyCredential(record), messageID)
	if err != nil {
		if errors.Is(err, provider.ErrMessageNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return detail, nil
}

// historyCredential 组装历史记录的访问凭证。
//
// 归档时没有可用令牌的记录（地址即身份的服务商）退回到
// 按地址拆分出的用户名与域名。
func historyCredential(r *domain.HistoryMailbox) provider.Credential {
	username, domainPart := r.Username, r.Domain
	if username == "" || domainPart == "" {
		if at := strings.IndexByte(r.Address, '@'); at > 0 {
			username = r.Address[:at]
			domainPart = r.Address[at+1:]
		}
	}
	return provider.Credential{
		Token:    r.Token,
		Username: username,
		Domain:   domainPart,
	}
}
