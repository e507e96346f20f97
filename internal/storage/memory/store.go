package memory

import (
	"sort"
	"sync"
	"time"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/storage"
)

// Store 使用内存保存邮箱与历史数据，主要用于开发验证和单机部署。
type Store struct {
	mu        sync.RWMutex
	mailboxes map[string]*domain.Mailbox
	byAddress map[string]string
	history   map[string]*domain.HistoryMailbox
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes: make(map[string]*domain.Mailbox),
		byAddress: make(map[string]string),
		history:   make(map[string]*domain.HistoryMailbox),
	}
}

// SaveMailbox 保存邮箱信息。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAddress[mailbox.Address]; ok && existing != mailbox.ID {
		return storage.ErrMailboxExists
	}

	clone := *mailbox
	s.mailboxes[mailbox.ID] = &clone
	s.byAddress[mailbox.Address] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	clone := *mailbox
	return &clone, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	clone := *s.mailboxes[id]
	return &clone, nil
}

// ListMailboxes 返回全部活跃邮箱，按创建时间倒序。
func (s *Store) ListMailboxes() ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Mailbox, 0, len(s.mailboxes))
	for _, m := range s.mailboxes {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListExpiredMailboxes 返回在 before 之前到期的邮箱，按到期时间升序。
func (s *Store) ListExpiredMailboxes(before time.Time) ([]domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Mailbox, 0)
	for _, m := range s.mailboxes {
		if !m.ExpiresAt.After(before) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, nil
}

// UpdateMailboxExpiry 更新邮箱的到期时间。
func (s *Store) UpdateMailboxExpiry(id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return storage.ErrMailboxNotFound
	}
	mailbox.ExpiresAt = expiresAt
	return nil
}

// UpdateMessageCount 更新邮箱的邮件计数。
func (s *Store) UpdateMessageCount(id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return storage.ErrMailboxNotFound
	}
	mailbox.MessageCount = count
	return nil
}

// DeleteMailbox 删除邮箱，目标不存在时静默成功。
func (s *Store) DeleteMailbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil
	}
	delete(s.byAddress, mailbox.Address)
	delete(s.mailboxes, id)
	return nil
}

// CountMailboxes 返回活跃邮箱数量。
func (s *Store) CountMailboxes() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.mailboxes)), nil
}

// SaveHistory 保存历史邮箱记录，重复保存以最新值为准。
func (s *Store) SaveHistory(record *domain.HistoryMailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *record
	s.history[record.ID] = &clone
	return nil
}

// GetHistory 根据 ID 获取历史记录。
func (s *Store) GetHistory(id string) (*domain.HistoryMailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.history[id]
	if !ok {
		return nil, storage.ErrHistoryNotFound
	}
	clone := *record
	return &clone, nil
}

// ListHistory 返回全部历史记录，按过期时间倒序。
func (s *Store) ListHistory() ([]domain.HistoryMailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HistoryMailbox, 0, len(s.history))
	for _, r := range s.history {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiredAt.After(out[j].ExpiredAt)
	})
	return out, nil
}

// DeleteHistory 删除指定历史记录，ids 为空时清空全部。
func (s *Store) DeleteHistory(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) == 0 {
		n := len(s.history)
		s.history = make(map[string]*domain.HistoryMailbox)
		return n, nil
	}

	deleted := 0
	for _, id := range ids {
		if _, ok := s.history[id]; ok {
			delete(s.history, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close 内存存储无需释放资源。
func (s *Store) Close() error { return nil }

// Health 内存存储始终健康。
func (s *Store) Health() error { return nil }
