// Package rest 提供服务适配器共用的 JSON HTTP 客户端。
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "APE-Core/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Config 描述 REST 客户端的连接参数。BasicUser 非空时使用 Basic
// 认证,否则 Token 非空时使用 Bearer 认证。
type Config struct {
	BaseURL   string
	Token     string
	BasicUser string
	BasicPass string
	Timeout   time.Duration
}

// Client 是一个面向 JSON API 的轻量 HTTP 客户端。
type Client struct {
	baseURL    string
	token      string
	basicUser  string
	basicPass  string
	httpClient *http.Client
}

// NewClient 创建 REST 客户端。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "REST base URL 不能为空")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		token:     strings.TrimSpace(cfg.Token),
		basicUser: cfg.BasicUser,
		basicPass: cfg.BasicPass,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// DoJSON 发送一次 JSON 请求并解码响应体。body 为 nil 时不携带请求
// 体;响应体为空时返回 nil。
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body any) (any, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化请求体失败")
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeExecutorFailure, err, "构建 HTTP 请求失败")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.basicUser != "":
		httpReq.SetBasicAuth(c.basicUser, c.basicPass)
	case c.token != "":
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeExecutorFailure, err, "HTTP 请求失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, xerrors.New(xerrors.CodeExecutorFailure,
			fmt.Sprintf("服务返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeExecutorFailure, err, "读取响应体失败")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeExecutorFailure, err, "解析响应体失败")
	}
	return decoded, nil
}
