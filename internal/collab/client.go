package collab

// 外部协作方的公共 HTTP 小客户端。所有适配器都是薄封装：
// 一次请求一次响应，错误只分「临时（可重试）」和「致命（不重试）」两类。

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"lumio/pkg/errors"
)

type httpClient struct {
	base  string
	token string
	c     *http.Client
}

func newHTTPClient(base, token string, timeout time.Duration) *httpClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &httpClient{
		base:  base,
		token: token,
		c:     &http.Client{Timeout: timeout},
	}
}

func (h *httpClient) available() bool {
	return h.base != ""
}

// getJSON 发 GET 并把响应体解码进 out（out 为 nil 时返回原始字节）
func (h *httpClient) getJSON(ctx context.Context, path string, out interface{}) ([]byte, error) {
	return h.do(ctx, http.MethodGet, path, nil, out)
}

// postJSON 发 POST JSON 并把响应体解码进 out
func (h *httpClient) postJSON(ctx context.Context, path string, in, out interface{}) ([]byte, error) {
	var body []byte
	if in != nil {
		var err error
		body, err = sonic.Marshal(in)
		if err != nil {
			return nil, errors.CollaboratorFatal
		}
	}
	return h.do(ctx, http.MethodPost, path, body, out)
}

func (h *httpClient) do(ctx context.Context, method, path string, body []byte, out interface{}) ([]byte, error) {
	if !h.available() {
		return nil, errors.CollaboratorUnavailable
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.base+path, reader)
	if err != nil {
		return nil, errors.CollaboratorFatal
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	req.Header.Set("User-Agent", "lumio/1.0")

	resp, err := h.c.Do(req)
	if err != nil {
		// 拿不到响应（超时、连接失败）一律视为临时故障
		return nil, errors.CollaboratorTransient
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.CollaboratorTransient
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.CollaboratorTransient
	}
	if resp.StatusCode >= 400 {
		return nil, errors.CollaboratorFatal
	}

	if out != nil {
		if err := sonic.Unmarshal(data, out); err != nil {
			return nil, errors.CollaboratorFatal
		}
	}
	return data, nil
}
