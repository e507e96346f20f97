package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/storage"
)

func newMailbox(address string, expiresAt time.Time) *domain.Mailbox {
	return &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		Provider:  "mailtm",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

func TestStore_Mailboxes(t *testing.T) {
	t.Run("保存后可按ID与地址读取", func(t *testing.T) {
		s := NewStore()
		m := newMailbox("a@mail.tm", time.Now().Add(10*time.Minute))
		require.NoError(t, s.SaveMailbox(m))

		got, err := s.GetMailbox(m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.Address, got.Address)

		got, err = s.GetMailboxByAddress("a@mail.tm")
		require.NoError(t, err)
		assert.Equal(t, m.ID, got.ID)
	})

	t.Run("地址重复报错", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.SaveMailbox(newMailbox("dup@mail.tm", time.Now().Add(time.Minute))))
		err := s.SaveMailbox(newMailbox("dup@mail.tm", time.Now().Add(time.Minute)))
		assert.ErrorIs(t, err, storage.ErrMailboxExists)
	})

	t.Run("删除不存在的邮箱静默成功", func(t *testing.T) {
		s := NewStore()
		assert.NoError(t, s.DeleteMailbox("missing"))
	})

	t.Run("读取返回副本不影响内部状态", func(t *testing.T) {
		s := NewStore()
		m := newMailbox("c@mail.tm", time.Now().Add(time.Minute))
		require.NoError(t, s.SaveMailbox(m))

		got, err := s.GetMailbox(m.ID)
		require.NoError(t, err)
		got.MessageCount = 99

		again, err := s.GetMailbox(m.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, again.MessageCount)
	})

	t.Run("更新到期时间", func(t *testing.T) {
		s := NewStore()
		m := newMailbox("d@mail.tm", time.Now().Add(time.Minute))
		require.NoError(t, s.SaveMailbox(m))

		later := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, s.UpdateMailboxExpiry(m.ID, later))

		got, err := s.GetMailbox(m.ID)
		require.NoError(t, err)
		assert.True(t, got.ExpiresAt.Equal(later))
	})
}

func TestStore_ExpiredMailboxes(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	expired1 := newMailbox("old1@mail.tm", now.Add(-2*time.Minute))
	expired2 := newMailbox("old2@mail.tm", now.Add(-time.Minute))
	alive := newMailbox("new@mail.tm", now.Add(time.Hour))
	for _, m := range []*domain.Mailbox{expired2, alive, expired1} {
		require.NoError(t, s.SaveMailbox(m))
	}

	out, err := s.ListExpiredMailboxes(now)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "old1@mail.tm", out[0].Address)
	assert.Equal(t, "old2@mail.tm", out[1].Address)
}

func TestStore_History(t *testing.T) {
	t.Run("重复保存以最新值为准", func(t *testing.T) {
		s := NewStore()
		m := newMailbox("h@mail.tm", time.Now())
		rec := domain.NewHistoryMailbox(m, time.Now().UTC())
		require.NoError(t, s.SaveHistory(rec))
		require.NoError(t, s.SaveHistory(rec))

		list, err := s.ListHistory()
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("批量删除返回命中数量", func(t *testing.T) {
		s := NewStore()
		m1 := newMailbox("h1@mail.tm", time.Now())
		m2 := newMailbox("h2@mail.tm", time.Now())
		require.NoError(t, s.SaveHistory(domain.NewHistoryMailbox(m1, time.Now())))
		require.NoError(t, s.SaveHistory(domain.NewHistoryMailbox(m2, time.Now())))

		n, err := s.DeleteHistory([]string{m1.ID, "missing"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("空ID列表清空全部", func(t *testing.T) {
		s := NewStore()
		m := newMailbox("h3@mail.tm", time.Now())
		require.NoError(t, s.SaveHistory(domain.NewHistoryMailbox(m, time.Now())))

		n, err := s.DeleteHistory(nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		list, err := s.ListHistory()
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
