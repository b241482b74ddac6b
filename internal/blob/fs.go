package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const metaFile = "resource.json"

// FSStore — хранилище ресурсов в локальной директории.
//
// Раскладка: <root>/<resourceID>/<version>/<fileName> и
// <root>/<resourceID>/resource.json с владельцем и проектом.
type FSStore struct {
	root string
	mu   sync.Mutex
}

type fsMeta struct {
	ResourceID  string    `json:"resource_id"`
	Owner       string    `json:"owner"`
	ProjectName string    `json:"project_name"`
	FileName    string    `json:"file_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFSStore создаёт FSStore в root, создавая директорию при необходимости.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Download копирует версию ресурса в dest.
func (s *FSStore) Download(ctx context.Context, user, resourceID, version, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validSegment(resourceID) || !validSegment(version) {
		return fmt.Errorf("resource %s@%s: %w", resourceID, version, ErrNotFound)
	}

	src, err := s.versionFile(resourceID, version)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open resource: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	return writeFile(dest, in)
}

// Upload сохраняет r как новый ресурс с версией v000001.
func (s *FSStore) Upload(ctx context.Context, user string, r io.Reader, fileName, projectName string) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}
	if !validSegment(fileName) {
		return Resource{}, fmt.Errorf("invalid file name %q", fileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := Resource{ID: uuid.NewString(), Version: formatVersion(1)}
	dir := filepath.Join(s.root, res.ID, res.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Resource{}, fmt.Errorf("create resource dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, fileName), r); err != nil {
		return Resource{}, err
	}

	meta, err := json.Marshal(fsMeta{
		ResourceID:  res.ID,
		Owner:       user,
		ProjectName: projectName,
		FileName:    fileName,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Resource{}, fmt.Errorf("marshal resource meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.root, res.ID, metaFile), meta, 0o644); err != nil {
		return Resource{}, fmt.Errorf("write resource meta: %w", err)
	}
	return res, nil
}

// UploadVersion добавляет новую версию существующего ресурса.
func (s *FSStore) UploadVersion(ctx context.Context, user, resourceID string, r io.Reader) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(resourceID)
	if err != nil {
		return Resource{}, err
	}
	versions, err := s.versions(resourceID)
	if err != nil {
		return Resource{}, err
	}

	res := Resource{ID: resourceID, Version: formatVersion(len(versions) + 1)}
	dir := filepath.Join(s.root, resourceID, res.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Resource{}, fmt.Errorf("create version dir: %w", err)
	}
	if err := writeFile(filepath.Join(dir, meta.FileName), r); err != nil {
		return Resource{}, err
	}
	return res, nil
}

// ReadLocalFile открывает локальный файл.
func (s *FSStore) ReadLocalFile(ctx context.Context, user, path string) (io.ReadCloser, error) {
	return readLocalFile(ctx, path)
}

func (s *FSStore) versionFile(resourceID, version string) (string, error) {
	dir := filepath.Join(s.root, resourceID, version)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resource %s@%s: %w", resourceID, version, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read resource dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("resource %s@%s: %w", resourceID, version, ErrNotFound)
}

func (s *FSStore) readMeta(resourceID string) (*fsMeta, error) {
	if !validSegment(resourceID) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, ErrNotFound)
	}
	data, err := os.ReadFile(filepath.Join(s.root, resourceID, metaFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("resource %s: %w", resourceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read resource meta: %w", err)
	}
	var meta fsMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode resource meta: %w", err)
	}
	return &meta, nil
}

func (s *FSStore) versions(resourceID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, resourceID))
	if err != nil {
		return nil, fmt.Errorf("read resource dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "v") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func formatVersion(n int) string {
	return fmt.Sprintf("v%06d", n)
}

// validSegment запрещает пустые сегменты и выход за пределы root.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

var _ Store = (*FSStore)(nil)
