package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// httpAPI 封装对单个服务商的出站 HTTP 访问。
//
// 统一处理超时、速率限制、JSON 编解码和错误分类，
// 各具体客户端只关心自己的接口路径与响应结构。
type httpAPI struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPAPI(name string, timeout time.Duration, ratePerSecond float64) httpAPI {
	api := httpAPI{
		name:   name,
		client: &http.Client{Timeout: timeout},
	}
	if ratePerSecond > 0 {
		api.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return api
}

// getJSON 发送 GET 请求并将响应解码到 out。
func (a *httpAPI) getJSON(ctx context.Context, op, url string, headers map[string]string, out interface{}) error {
	return a.doJSON(ctx, op, http.MethodGet, url, headers, nil, out)
}

// postJSON 发送 JSON 体的 POST 请求并将响应解码到 out。
func (a *httpAPI) postJSON(ctx context.Context, op, url string, body, out interface{}) error {
	return a.doJSON(ctx, op, http.MethodPost, url, nil, body, out)
}

func (a *httpAPI) doJSON(ctx context.Context, op, method, url string, headers map[string]string, body, out interface{}) error {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return wrapErr(a.name, op, KindTransient, err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return wrapErr(a.name, op, KindPermanent, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return wrapErr(a.name, op, KindPermanent, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// 网络错误与超时都视为 transient，交给重试策略
		return wrapErr(a.name, op, KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// 读掉响应体便于连接复用，内容不参与判断
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &Error{
			Provider: a.name,
			Op:       op,
			Kind:     classifyStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapErr(a.name, op, KindPermanent, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}
