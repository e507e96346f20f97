package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tempmail/gateway/internal/domain"
)

// stubClient 仅用于域名缓存测试的可编程客户端
type stubClient struct {
	name      string
	domains   []string
	fallback  []string
	err       error
	listCalls int
}

func (s *stubClient) Name() string              { return s.name }
func (s *stubClient) DisplayName() string       { return s.name }
func (s *stubClient) FallbackDomains() []string { return s.fallback }

func (s *stubClient) ListDomains(context.Context) ([]string, error) {
	s.listCalls++
	return s.domains, s.err
}

func (s *stubClient) CreateAccount(context.Context, string, string) (*Account, error) {
	return nil, errors.New("not implemented")
}

func (s *stubClient) Authenticate(context.Context, string, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubClient) ListMessages(context.Context, Credential) ([]domain.MessageSummary, error) {
	return nil, errors.New("not implemented")
}

func (s *stubClient) GetMessage(context.Context, Credential, string) (*domain.MessageDetail, error) {
	return nil, errors.New("not implemented")
}

func TestDomainCache(t *testing.T) {
	ctx := context.Background()

	t.Run("TTL 内命中缓存", func(t *testing.T) {
		client := &stubClient{name: "mailtm", domains: []string{"a.com"}}
		cache := NewDomainCache(5*time.Minute, nil, nil)

		assert.Equal(t, []string{"a.com"}, cache.Domains(ctx, client))
		assert.Equal(t, []string{"a.com"}, cache.Domains(ctx, client))
		assert.Equal(t, 1, client.listCalls)
	})

	t.Run("过期后重新拉取", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		client := &stubClient{name: "mailtm", domains: []string{"a.com"}}
		cache := NewDomainCache(5*time.Minute, nil, nil)
		cache.now = func() time.Time { return now }

		cache.Domains(ctx, client)
		now = now.Add(6 * time.Minute)
		client.domains = []string{"b.com"}

		assert.Equal(t, []string{"b.com"}, cache.Domains(ctx, client))
		assert.Equal(t, 2, client.listCalls)
	})

	t.Run("刷新失败时沿用过期旧值", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		client := &stubClient{name: "mailtm", domains: []string{"a.com"}}
		cache := NewDomainCache(5*time.Minute, nil, nil)
		cache.now = func() time.Time { return now }

		cache.Domains(ctx, client)
		now = now.Add(6 * time.Minute)
		client.err = errors.New("upstream down")
		client.domains = nil

		assert.Equal(t, []string{"a.com"}, cache.Domains(ctx, client))
	})

	t.Run("无缓存无上游时退到静态兜底", func(t *testing.T) {
		client := &stubClient{
			name:     "1secmail",
			err:      errors.New("403"),
			fallback: []string{"1secmail.com", "1secmail.org"},
		}
		cache := NewDomainCache(5*time.Minute, nil, nil)

		assert.Equal(t, []string{"1secmail.com", "1secmail.org"}, cache.Domains(ctx, client))
	})

	t.Run("失效后强制刷新", func(t *testing.T) {
		client := &stubClient{name: "mailgw", domains: []string{"a.com"}}
		cache := NewDomainCache(time.Hour, nil, nil)

		cache.Domains(ctx, client)
		cache.Invalidate("mailgw")
		cache.Domains(ctx, client)

		require.Equal(t, 2, client.listCalls)
	})
}
