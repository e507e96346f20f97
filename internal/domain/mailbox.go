package domain

import (
	"time"
)

// Mailbox 表示一个由第三方服务商托管的临时邮箱。
//
// 凭证字段因服务商而异：
//   - mailtm / mailgw 使用 Password 换取的 Bearer Token
//   - 1secmail 无密码无令牌，Token 即邮箱地址本身
//   - guerrilla 使用 sid_token 作为 Token
type Mailbox struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address      string    `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	Password     string    `json:"password" gorm:"type:varchar(255)"`
	Token        string    `json:"token" gorm:"type:text"`
	AccountID    string    `json:"accountId" gorm:"type:varchar(255)"`
	Provider     string    `json:"provider" gorm:"type:varchar(32);index"`
	Username     string    `json:"username" gorm:"type:varchar(255)"` // 地址的本地部分
	Domain       string    `json:"domain" gorm:"type:varchar(255)"`   // 地址的域名部分
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt" gorm:"index"`
	MessageCount int       `json:"messageCount"`
}

// Expired 判断邮箱在给定时刻是否已过期。
func (m *Mailbox) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}

// HistoryMailbox 表示已过期归档的邮箱。
//
// 由清理任务从 Mailbox 复制生成，ExpiredAt 记录归档时刻；
// 历史记录只进不出，不会回到活跃集合。
type HistoryMailbox struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address      string    `json:"address" gorm:"type:varchar(255);index"`
	Password     string    `json:"password" gorm:"type:varchar(255)"`
	Token        string    `json:"token" gorm:"type:text"`
	AccountID    string    `json:"accountId" gorm:"type:varchar(255)"`
	Provider     string    `json:"provider" gorm:"type:varchar(32);index"`
	Username     string    `json:"username" gorm:"type:varchar(255)"`
	Domain       string    `json:"domain" gorm:"type:varchar(255)"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiredAt    time.Time `json:"expiredAt" gorm:"index"`
	MessageCount int       `json:"messageCount"`
}

// NewHistoryMailbox 从活跃邮箱构造归档记录。
func NewHistoryMailbox(m *Mailbox, expiredAt time.Time) *HistoryMailbox {
	return &HistoryMailbox{
		ID:           m.ID,
		Address:      m.Address,
		Password:     m.Password,
		Token:        m.Token,
		AccountID:    m.AccountID,
		Provider:     m.Provider,
		Username:     m.Username,
		Domain:       m.Domain,
		CreatedAt:    m.CreatedAt,
		ExpiredAt:    expiredAt,
		MessageCount: m.MessageCount,
	}
}
