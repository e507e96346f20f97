package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/gateway/internal/domain"
	"tempmail/gateway/internal/storage"
	"tempmail/gateway/internal/storage/memory"
)

// failingStore 包装内存存储并在指定地址上注入历史写入失败。
type failingStore struct {
	storage.Store
	failAddress string
}

func (f *failingStore) SaveHistory(record *domain.HistoryMailbox) error {
	if record.Address == f.failAddress {
		return errors.New("history insert failed")
	}
	return f.Store.SaveHistory(record)
}

func seedMailbox(t *testing.T, repo storage.Store, address string, expiresAt time.Time) *domain.Mailbox {
	t.Helper()
	m := &domain.Mailbox{
		ID:        uuid.NewString(),
		Address:   address,
		Provider:  "mailtm",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	require.NoError(t, repo.SaveMailbox(m))
	return m
}

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("过期邮箱迁入历史并从活跃表删除", func(t *testing.T) {
		repo := memory.NewStore()
		now := time.Now().UTC()
		expired := seedMailbox(t, repo, "old@mail.tm", now.Add(-time.Minute))
		alive := seedMailbox(t, repo, "new@mail.tm", now.Add(time.Hour))

		sw := NewSweeper(repo, nil, 30*time.Second, false, nil, nil)
		moved, errs := sw.SweepOnce(ctx)
		assert.Equal(t, 1, moved)
		assert.Zero(t, errs)

		_, err := repo.GetMailbox(expired.ID)
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)

		record, err := repo.GetHistory(expired.ID)
		require.NoError(t, err)
		assert.Equal(t, "old@mail.tm", record.Address)
		assert.False(t, record.ExpiredAt.IsZero())

		_, err = repo.GetMailbox(alive.ID)
		assert.NoError(t, err)
	})

	t.Run("单条失败不影响其余记录", func(t *testing.T) {
		inner := memory.NewStore()
		repo := &failingStore{Store: inner, failAddress: "bad@mail.tm"}
		now := time.Now().UTC()
		bad := seedMailbox(t, repo, "bad@mail.tm", now.Add(-2*time.Minute))
		good := seedMailbox(t, repo, "good@mail.tm", now.Add(-time.Minute))

		sw := NewSweeper(repo, nil, 30*time.Second, false, nil, nil)
		moved, errs := sw.SweepOnce(ctx)
		assert.Equal(t, 1, moved)
		assert.Equal(t, 1, errs)

		// 历史写入失败的记录保留在活跃表，下一轮重试
		_, err := repo.GetMailbox(bad.ID)
		assert.NoError(t, err)

		_, err = repo.GetHistory(good.ID)
		assert.NoError(t, err)
	})

	t.Run("无过期记录时为空转", func(t *testing.T) {
		repo := memory.NewStore()
		seedMailbox(t, repo, "new@mail.tm", time.Now().Add(time.Hour))

		sw := NewSweeper(repo, nil, 30*time.Second, false, nil, nil)
		moved, errs := sw.SweepOnce(ctx)
		assert.Zero(t, moved)
		assert.Zero(t, errs)
	})

	t.Run("开启补充策略时启动即空的活跃集也会补建", func(t *testing.T) {
		c := &fakeClient{name: "mailtm", domains: []string{"mail.tm"}}
		svc, _, repo := newService(c)

		// 本轮没有任何迁移，空集检查依然要触发
		sw := NewSweeper(repo, svc, 30*time.Second, true, nil, nil)
		moved, errs := sw.SweepOnce(ctx)
		assert.Zero(t, moved)
		assert.Zero(t, errs)

		count, err := repo.CountMailboxes()
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("活跃集非空时不补建", func(t *testing.T) {
		c := &fakeClient{name: "mailtm", domains: []string{"mail.tm"}}
		svc, _, repo := newService(c)
		seedMailbox(t, repo, "alive@mail.tm", time.Now().UTC().Add(time.Hour))

		sw := NewSweeper(repo, svc, 30*time.Second, true, nil, nil)
		sw.SweepOnce(ctx)

		assert.Zero(t, c.createCalls)
		count, err := repo.CountMailboxes()
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("到期时刻等于当前时间也算过期", func(t *testing.T) {
		repo := memory.NewStore()
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		seedMailbox(t, repo, "edge@mail.tm", now)

		sw := NewSweeper(repo, nil, 30*time.Second, false, nil, nil)
		sw.now = func() time.Time { return now }

		moved, _ := sw.SweepOnce(ctx)
		assert.Equal(t, 1, moved)
	})
}

func TestSweeper_Run(t *testing.T) {
	t.Run("取消上下文后退出", func(t *testing.T) {
		repo := memory.NewStore()
		sw := NewSweeper(repo, nil, time.Millisecond, false, nil, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := sw.Run(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
