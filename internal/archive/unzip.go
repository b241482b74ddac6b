package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath — запись архива указывает за пределы директории распаковки.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// ErrTooLarge — распакованное содержимое превышает лимит.
var ErrTooLarge = errors.New("archive exceeds unpacked size limit")

// Unzip распаковывает src в dest. maxBytes <= 0 — без ограничения.
func Unzip(src, dest string, maxBytes int64) error {
	r, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create dest: %w", err)
	}

	var total int64
	for _, f := range r.File {
		target, err := entryPath(dest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", f.Name, err)
			}
			continue
		}

		n, err := extractFile(f, target, remaining(maxBytes, total))
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

func remaining(limit, used int64) int64 {
	if limit <= 0 {
		return -1
	}
	return limit - used
}

func entryPath(dest, name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create dir for %s: %w", f.Name, err)
	}

	in, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", f.Name, err)
	}
	defer out.Close()

	var reader io.Reader = in
	if limit >= 0 {
		reader = io.LimitReader(in, limit+1)
	}
	n, err := io.Copy(out, reader)
	if err != nil {
		return n, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if limit >= 0 && n > limit {
		return n, ErrTooLarge
	}
	return n, nil
}
