package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHydraClient(t *testing.T) {
	t.Run("获取域名列表", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/domains", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"hydra:member":[{"domain":"indigobook.com"},{"domain":"punkproof.com"}]}`))
		}))
		defer srv.Close()

		c := NewMailTM(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		domains, err := c.ListDomains(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"indigobook.com", "punkproof.com"}, domains)
	})

	t.Run("创建账户并认证", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/accounts":
				require.Equal(t, http.MethodPost, r.Method)
				_, _ = w.Write([]byte(`{"id":"acc-1"}`))
			case "/token":
				_, _ = w.Write([]byte(`{"token":"jwt-abc"}`))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		c := NewMailGW(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		acct, err := c.CreateAccount(context.Background(), "u@mailgw.test", "pw")
		require.NoError(t, err)
		assert.Equal(t, "acc-1", acct.ID)
		assert.Empty(t, acct.Token)

		token, err := c.Authenticate(context.Background(), "u@mailgw.test", "pw")
		require.NoError(t, err)
		assert.Equal(t, "jwt-abc", token)
	})

	t.Run("邮件正文统一为数组", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":"m1","from":{"address":"a@b.c","name":"A"},"subject":"hi","createdAt":"2026-01-01T00:00:00Z","text":"plain","html":["<p>hi</p>"]}`))
		}))
		defer srv.Close()

		c := NewMailTM(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		msg, err := c.GetMessage(context.Background(), Credential{Token: "tok"}, "m1")
		require.NoError(t, err)
		assert.Equal(t, []string{"plain"}, msg.Text)
		assert.Equal(t, []string{"<p>hi</p>"}, msg.HTML)
	})

	t.Run("邮件不存在返回专用错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewMailTM(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		_, err := c.GetMessage(context.Background(), Credential{Token: "tok"}, "gone")
		assert.ErrorIs(t, err, ErrMessageNotFound)
	})

	t.Run("限流错误带状态分类", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewMailTM(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		_, err := c.ListDomains(context.Background())
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
	})
}

func TestOneSecMailClient(t *testing.T) {
	t.Run("创建账户无需网络请求", func(t *testing.T) {
		c := NewOneSecMail(Options{BaseURL: "http://127.0.0.1:0"})
		acct, err := c.CreateAccount(context.Background(), "user1@1secmail.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "user1@1secmail.com", acct.ID)
		assert.Equal(t, "user1@1secmail.com", acct.Token)
	})

	t.Run("消息字段缺省填充", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":42}]`))
		}))
		defer srv.Close()

		c := NewOneSecMail(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		msgs, err := c.ListMessages(context.Background(), Credential{Token: "user1@1secmail.com"})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "42", msgs[0].ID)
		assert.Equal(t, "unknown", msgs[0].From.Address)
		assert.Equal(t, "No Subject", msgs[0].Subject)
		assert.NotEmpty(t, msgs[0].CreatedAt)
	})

	t.Run("静态兜底域名", func(t *testing.T) {
		c := NewOneSecMail(Options{})
		domains := c.FallbackDomains()
		assert.Contains(t, domains, "1secmail.com")
		assert.Len(t, domains, 7)
	})
}

func TestGuerrillaClient(t *testing.T) {
	t.Run("注册即获得会话凭证", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "set_email_user", r.URL.Query().Get("f"))
			require.Equal(t, "user1", r.URL.Query().Get("email_user"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"email_addr":"user1@guerrillamail.com","sid_token":"sid-1"}`))
		}))
		defer srv.Close()

		c := NewGuerrilla(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		acct, err := c.CreateAccount(context.Background(), "user1@guerrillamail.com", "pw")
		require.NoError(t, err)
		assert.Equal(t, "sid-1", acct.ID)
		assert.Equal(t, "sid-1", acct.Token)
	})

	t.Run("正文同时填充两种格式", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"mail_id":7,"mail_from":"a@b.c","mail_subject":"hi","mail_timestamp":1700000000,"mail_body":"<p>hello</p>"}`))
		}))
		defer srv.Close()

		c := NewGuerrilla(Options{BaseURL: srv.URL, Retry: Backoff{Attempts: 1}})
		msg, err := c.GetMessage(context.Background(), Credential{Token: "sid-1"}, "7")
		require.NoError(t, err)
		assert.Equal(t, []string{"<p>hello</p>"}, msg.Text)
		assert.Equal(t, []string{"<p>hello</p>"}, msg.HTML)
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewMailTM(Options{}))
	reg.Register(NewGuerrilla(Options{}))

	t.Run("指定服务商只返回单个候选", func(t *testing.T) {
		candidates, err := reg.Candidates(NameGuerrilla)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, NameGuerrilla, candidates[0].Name())
	})

	t.Run("auto 返回全部候选", func(t *testing.T) {
		candidates, err := reg.Candidates(ServiceAuto)
		require.NoError(t, err)
		assert.Len(t, candidates, 2)
	})

	t.Run("未知服务商报错", func(t *testing.T) {
		_, err := reg.Candidates("nope")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestBackoff(t *testing.T) {
	t.Run("成功前按次数重试", func(t *testing.T) {
		calls := 0
		b := Backoff{Attempts: 3, BaseDelay: time.Millisecond}
		err := b.Do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &Error{Provider: "x", Op: "op", Kind: KindTransient, Err: errors.New("boom")}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("永久错误不重试", func(t *testing.T) {
		calls := 0
		b := Backoff{Attempts: 3, BaseDelay: time.Millisecond}
		err := b.Do(context.Background(), func() error {
			calls++
			return &Error{Provider: "x", Op: "op", Kind: KindPermanent, Err: errors.New("bad request")}
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("上下文取消中断等待", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := Backoff{Attempts: 3, BaseDelay: time.Second}
		err := b.Do(ctx, func() error {
			return &Error{Provider: "x", Op: "op", Kind: KindTransient, Err: errors.New("boom")}
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
