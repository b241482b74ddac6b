package contextsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPRegistrar — клиент внешнего context-сервиса.
//
//	POST {base}/api/v1/contexts  {workspace, project, orchestrator, version, user}
//	→ {"data": {"context_id": "..."}}
type HTTPRegistrar struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRegistrar создаёт клиент context-сервиса.
func NewHTTPRegistrar(baseURL string, timeout time.Duration) *HTTPRegistrar {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRegistrar{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateContextID запрашивает идентификатор у сервиса.
func (r *HTTPRegistrar) CreateContextID(ctx context.Context, scope Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(scope)
	if err != nil {
		return "", fmt.Errorf("marshal scope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/v1/contexts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create context id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Message == "" {
			return "", fmt.Errorf("context service error: HTTP %d", resp.StatusCode)
		}
		return "", fmt.Errorf("context service error: %s: %s", er.Error.Code, er.Error.Message)
	}

	var dr struct {
		Data struct {
			ContextID string `json:"context_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if dr.Data.ContextID == "" {
		return "", errors.New("context service returned empty context id")
	}
	return dr.Data.ContextID, nil
}

var _ Registrar = (*HTTPRegistrar)(nil)
