package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIClient 封装对 relay 的 HTTP 调用
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// APIError relay 返回的错误信封
type APIError struct {
	HTTPStatus int
	ErrorCode  string
	Reason     string
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("HTTP %d: %s", e.HTTPStatus, e.Reason)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.HTTPStatus, e.ErrorCode, e.Reason)
}

// NewAPIClient 创建新的 API 客户端
func NewAPIClient(cfg *Config) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Get 发送 GET 请求
func (c *APIClient) Get(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

// Post 发送带 JSON body 的 POST 请求
func (c *APIClient) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
}

// doRequest 执行 HTTP 请求，4xx/5xx 解析为 *APIError
func (c *APIClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed (check ZOOMRELAY_SERVER_URL=%s): %w", c.BaseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func parseAPIError(status int, data []byte) *APIError {
	var env struct {
		Message struct {
			Reason    string `json:"reason"`
			ErrorCode string `json:"errorCode"`
		} `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err == nil && env.Message.ErrorCode != "" {
		return &APIError{HTTPStatus: status, ErrorCode: env.Message.ErrorCode, Reason: env.Message.Reason}
	}
	return &APIError{HTTPStatus: status, Reason: strings.TrimSpace(string(data))}
}
