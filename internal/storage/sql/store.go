package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建SQL数据库存储
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	switch driverName {
	case "mysql":
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	case "postgres":
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

// migrate 执行数据库迁移（使用GORM AutoMigrate）
func (s *Store) migrate() error {
	return s.gormDB.AutoMigrate(
		&domain.Mailbox{},
		&domain.HistoryMailbox{},
	)
}

// SaveMailbox 保存邮箱信息
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	err := s.gormDB.Create(mailbox).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrMailboxExists
	}
	return err
}

// GetMailbox 根据 ID 获取邮箱
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.First(&mailbox, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.First(&mailbox, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// ListMailboxes 返回全部活跃邮箱，按创建时间倒序
func (s *Store) ListMailboxes() ([]domain.Mailbox, error) {
	var mailboxes []domain.Mailbox
	err := s.gormDB.Order("created_at DESC").Find(&mailboxes).Error
	return mailboxes, err
}

// ListExpiredMailboxes 返回在 before 之前到期的邮箱，按到期时间升序
func (s *Store) ListExpiredMailboxes(before time.Time) ([]domain.Mailbox, error) {
	var mailboxes []domain.Mailbox
	err := s.gormDB.
		Where("expires_at <= ?", before).
		Order("expires_at ASC").
		Find(&mailboxes).Error
	return mailboxes, err
}

// UpdateMailboxExpiry 更新邮箱的到期时间
func (s *Store) UpdateMailboxExpiry(id string, expiresAt time.Time) error {
	result := s.gormDB.Model(&domain.Mailbox{}).
		Where("id = ?", id).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMailboxNotFound
	}
	return nil
}

// UpdateMessageCount 更新邮箱的邮件计数
func (s *Store) UpdateMessageCount(id string, count int) error {
	result := s.gormDB.Model(&domain.Mailbox{}).
		Where("id = ?", id).
		Update("message_count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMailboxNotFound
	}
	return nil
}

// DeleteMailbox 删除邮箱，目标不存在时静默成功
func (s *Store) DeleteMailbox(id string) error {
	return s.gormDB.Delete(&domain.Mailbox{}, "id = ?", id).Error
}

// CountMailboxes 返回活跃邮箱数量
func (s *Store) CountMailboxes() (int64, error) {
	var count int64
	err := s.gormDB.Model(&domain.Mailbox{}).Count(&count).Error
	return count, err
}

// SaveHistory 保存历史邮箱记录，主键冲突时覆盖旧值
func (s *Store) SaveHistory(record *domain.HistoryMailbox) error {
	return s.gormDB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// GetHistory 根据 ID 获取历史记录
func (s *Store) GetHistory(id string) (*domain.HistoryMailbox, error) {
	var record domain.HistoryMailbox
	err := s.gormDB.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrHistoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListHistory 返回全部历史记录，按过期时间倒序
func (s *Store) ListHistory() ([]domain.HistoryMailbox, error) {
	var records []domain.HistoryMailbox
	err := s.gormDB.Order("expired_at DESC").Find(&records).Error
	return records, err
}

// DeleteHistory 删除指定历史记录，ids 为空时清空全部，返回删除数量
func (s *Store) DeleteHistory(ids []string) (int, error) {
	query := s.gormDB
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	} else {
		query = query.Where("1 = 1")
	}
	result := query.Delete(&domain.HistoryMailbox{})
	return int(result.RowsAffected), result.Error
}
