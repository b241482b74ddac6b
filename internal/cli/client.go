package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// OrchestratorResponse — оркестратор из API.
type OrchestratorResponse struct {
	ID          int64  `json:"id"`
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ProjectID   int64  `json:"project_id"`
	WorkspaceID int64  `json:"workspace_id,omitempty"`
	Type        string `json:"type"`
	Mode        string `json:"mode"`
	Way         string `json:"way"`
	Creator     string `json:"creator"`
	CreateTime  string `json:"create_time"`
	Updater     string `json:"updater,omitempty"`
	UpdateTime  string `json:"update_time,omitempty"`
}

// VersionResponse — версия оркестратора из API.
type VersionResponse struct {
	ID         int64  `json:"id"`
	Version    string `json:"version"`
	AppID      *int64 `json:"app_id,omitempty"`
	ContextID  string `json:"context_id"`
	ValidFlag  bool   `json:"valid_flag"`
	ProjectID  int64  `json:"project_id"`
	Updater    string `json:"updater"`
	UpdateTime string `json:"update_time"`
	Comment    string `json:"comment,omitempty"`
	Source     string `json:"source,omitempty"`
}

// ImportResult — результат импорта: id оркестратора (sync) или id запроса (async).
type ImportResult struct {
	OrchestratorID int64  `json:"orchestrator_id,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

// ActivateResult — результат активации версии.
type ActivateResult struct {
	OrchestratorID int64  `json:"orchestrator_id"`
	Version        string `json:"version"`
}

// --- Request types ---

// Workspace — рабочее пространство запроса импорта.
type Workspace struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ImportRequest — тело запроса импорта.
type ImportRequest struct {
	UserName        string    `json:"user_name"`
	ProjectName     string    `json:"project_name"`
	ProjectID       int64     `json:"project_id"`
	ResourceID      string    `json:"resource_id"`
	BMLVersion      string    `json:"bml_version"`
	Labels          []string  `json:"labels,omitempty"`
	Workspace       Workspace `json:"workspace"`
	CopyProjectID   *int64    `json:"copy_project_id,omitempty"`
	CopyProjectName string    `json:"copy_project_name,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		LegacyCode int    `json:"legacy_code"`
	} `json:"error"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status     int
	Code       string
	Message    string
	LegacyCode int
}

func (e *APIError) Error() string {
	if e.LegacyCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.LegacyCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для orcpub API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// импорт синхронно вызывает downstream-системы
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Orchestrators ---

// Import импортирует пакет. При async=true запрос ставится в очередь.
func (c *Client) Import(req ImportRequest, async bool) (*ImportResult, error) {
	path := "/api/v1/orchestrators/import"
	if async {
		path += "?" + url.Values{"async": {"true"}}.Encode()
	}

	var result ImportResult
	err := c.post(path, req, &result)
	return &result, err
}

// GetOrchestrator возвращает оркестратор по ID.
func (c *Client) GetOrchestrator(id int64) (*OrchestratorResponse, error) {
	var o OrchestratorResponse
	err := c.get("/api/v1/orchestrators/"+strconv.FormatInt(id, 10), &o)
	return &o, err
}

// ListVersions возвращает версии оркестратора.
func (c *Client) ListVersions(id int64) ([]VersionResponse, error) {
	var versions []VersionResponse
	err := c.list("/api/v1/orchestrators/"+strconv.FormatInt(id, 10)+"/versions", nil, &versions)
	return versions, err
}

// ActivateVersion делает версию единственной активной.
func (c *Client) ActivateVersion(id int64, version string) (*ActivateResult, error) {
	var result ActivateResult
	path := "/api/v1/orchestrators/" + strconv.FormatInt(id, 10) + "/versions/" + url.PathEscape(version) + "/activate"
	err := c.post(path, nil, &result)
	return &result, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return &APIError{
		Status:     resp.StatusCode,
		Code:       er.Error.Code,
		Message:    er.Error.Message,
		LegacyCode: er.Error.LegacyCode,
	}
}
