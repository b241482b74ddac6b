// Package blob — доступ к хранилищу ресурсов (пакетов оркестраторов).
//
// Ресурс адресуется парой (resourceID, version). Реализации:
//   - FSStore — каталог на диске, для однонодовых установок и тестов
//   - HTTPStore — удалённый сервис ресурсов
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNotFound — ресурс или версия не найдены.
var ErrNotFound = errors.New("resource not found")

// Resource — ссылка на сохранённый ресурс.
type Resource struct {
	ID      string `json:"resource_id"`
	Version string `json:"version"`
}

// Store — хранилище ресурсов.
type Store interface {
	// Download скачивает версию ресурса в файл dest.
	Download(ctx context.Context, user, resourceID, version, dest string) error

	// Upload сохраняет содержимое r как новый ресурс проекта.
	Upload(ctx context.Context, user string, r io.Reader, fileName, projectName string) (Resource, error)

	// ReadLocalFile открывает локальный файл от имени пользователя.
	ReadLocalFile(ctx context.Context, user, path string) (io.ReadCloser, error)
}

func readLocalFile(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// writeFile копирует r в path через временный файл в той же директории.
func writeFile(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".blob-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
