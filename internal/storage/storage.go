package storage

import (
	"errors"
	"time"

	"tempmail/gateway/internal/domain"
)

var (
	// ErrMailboxNotFound 邮箱未找到错误
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrHistoryNotFound 历史记录未找到错误
	ErrHistoryNotFound = errors.New("history mailbox not found")
	// ErrMailboxExists 邮箱地址已存在错误
	ErrMailboxExists = errors.New("mailbox already exists")
)

// MailboxRepository 定义活跃邮箱数据存取操作。
type MailboxRepository interface {
	SaveMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	GetMailboxByAddress(address string) (*domain.Mailbox, error)
	ListMailboxes() ([]domain.Mailbox, error)
	ListExpiredMailboxes(before time.Time) ([]domain.Mailbox, error)
	UpdateMailboxExpiry(id string, expiresAt time.Time) error
	UpdateMessageCount(id string, count int) error
	DeleteMailbox(id string) error
	CountMailboxes() (int64, error)
}

// HistoryRepository 定义历史邮箱数据存取操作。
type HistoryRepository interface {
	SaveHistory(record *domain.HistoryMailbox) error
	GetHistory(id string) (*domain.HistoryMailbox, error)
	ListHistory() ([]domain.HistoryMailbox, error)
	// DeleteHistory 删除指定历史记录；ids 为空时清空全部，返回删除数量。
	DeleteHistory(ids []string) (int, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	HistoryRepository

	// 工具方法
	Close() error
	Health() error
}
