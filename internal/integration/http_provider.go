package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// HTTPProvider — провайдер, доступный по HTTP.
//
//	POST {endpoint}/api/v1/import-ref  ImportRefRequest
//	→ {"data": {"app_id": 42, "content": "..."}}
type HTTPProvider struct {
	endpoint string
	client   *http.Client
}

// NewHTTPProvider создаёт HTTPProvider.
func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPProvider{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// ImportRef отправляет запрос downstream-системе.
func (p *HTTPProvider) ImportRef(ctx context.Context, req *ImportRefRequest) (*ImportRefResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/v1/import-ref", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-User", req.User)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("import ref cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var er struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
			return nil, fmt.Errorf("downstream error: HTTP %d: %s: %s", resp.StatusCode, er.Error.Code, er.Error.Message)
		}
		return nil, fmt.Errorf("downstream error: HTTP %d", resp.StatusCode)
	}

	var dr struct {
		Data ImportRefResponse `json:"data"`
	}
	if err := json.Unmarshal(data, &dr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &dr.Data, nil
}

var _ Provider = (*HTTPProvider)(nil)
