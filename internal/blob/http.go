package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPStore — клиент удалённого сервиса ресурсов.
//
// Эндпоинты:
//
//	GET  {base}/api/v1/resources/{id}/versions/{version}/content
//	POST {base}/api/v1/resources  (multipart: file, project_name)
//
// Пользователь передаётся заголовком X-User.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStore создаёт клиент сервиса ресурсов.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Download скачивает версию ресурса в dest.
func (s *HTTPStore) Download(ctx context.Context, user, resourceID, version, dest string) error {
	path := "/api/v1/resources/" + url.PathEscape(resourceID) +
		"/versions/" + url.PathEscape(version) + "/content"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-User", user)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s@%s: %w", resourceID, version, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("resource %s@%s: %w", resourceID, version, ErrNotFound)
	}
	if err := checkError(resp); err != nil {
		return fmt.Errorf("download %s@%s: %w", resourceID, version, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	return writeFile(dest, resp.Body)
}

// Upload загружает r как новый ресурс проекта.
func (s *HTTPStore) Upload(ctx context.Context, user string, r io.Reader, fileName, projectName string) (Resource, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			if err := mw.WriteField("project_name", projectName); err != nil {
				return err
			}
			part, err := mw.CreateFormFile("file", fileName)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, r); err != nil {
				return err
			}
			return mw.Close()
		}()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/resources", pr)
	if err != nil {
		pr.Close()
		return Resource{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User", user)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Resource{}, fmt.Errorf("upload %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return Resource{}, fmt.Errorf("upload %s: %w", fileName, err)
	}

	var dr struct {
		Data Resource `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return Resource{}, fmt.Errorf("decode upload response: %w", err)
	}
	if dr.Data.ID == "" {
		return Resource{}, fmt.Errorf("upload %s: empty resource id in response", fileName)
	}
	return dr.Data, nil
}

// ReadLocalFile открывает локальный файл.
func (s *HTTPStore) ReadLocalFile(ctx context.Context, user, path string) (io.ReadCloser, error) {
	return readLocalFile(ctx, path)
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Message == "" {
		return fmt.Errorf("resource service error: HTTP %d", resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}

var _ Store = (*HTTPStore)(nil)
