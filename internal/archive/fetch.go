package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/orcpub/internal/blob"
	"github.com/shaiso/orcpub/internal/domain"
)

// Имена файлов внутри scratch-директории и пакета.
const (
	PackageFileName = "default_orc.zip"
	FlowFileName    = "orc_flow.zip"
	unpackDirName   = "default_orc"
)

// DefaultMaxUnpackedBytes — ограничение на суммарный размер распакованных файлов.
const DefaultMaxUnpackedBytes int64 = 512 << 20

// FetchRequest — локатор пакета.
type FetchRequest struct {
	User       string
	Project    string
	ResourceID string
	Version    string
}

// Config — конфигурация Fetcher.
type Config struct {
	Store            blob.Store
	ScratchDir       string
	MaxUnpackedBytes int64
	Logger           *slog.Logger
}

// Fetcher скачивает и распаковывает пакеты.
type Fetcher struct {
	store    blob.Store
	scratch  string
	maxBytes int64
	logger   *slog.Logger
}

// NewFetcher создаёт Fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if cfg.MaxUnpackedBytes <= 0 {
		cfg.MaxUnpackedBytes = DefaultMaxUnpackedBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		store:    cfg.Store,
		scratch:  cfg.ScratchDir,
		maxBytes: cfg.MaxUnpackedBytes,
		logger:   cfg.Logger,
	}
}

// Package — распакованный пакет во временной директории.
type Package struct {
	// Dir — корень распакованного содержимого.
	Dir string

	// ArchivePath — путь к скачанному архиву.
	ArchivePath string

	root   string
	logger *slog.Logger
}

// FlowPath возвращает путь к вложенному архиву потока.
func (p *Package) FlowPath() string {
	return filepath.Join(p.Dir, FlowFileName)
}

// Descriptors читает метаданные пакета и проверяет наличие orc_flow.zip.
func (p *Package) Descriptors() ([]Descriptor, error) {
	descs, err := ReadMeta(p.Dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p.FlowPath())
	if err != nil || info.IsDir() {
		return nil, domain.NewError(domain.CodeMalformedPackage, "package has no "+FlowFileName)
	}
	return descs, nil
}

// Close удаляет scratch-директорию импорта. Повторный вызов безопасен.
func (p *Package) Close() error {
	if p == nil || p.root == "" {
		return nil
	}
	root := p.root
	p.root = ""
	if err := os.RemoveAll(root); err != nil {
		p.logger.Warn("failed to remove scratch dir", "dir", root, "error", err)
		return fmt.Errorf("remove scratch dir: %w", err)
	}
	return nil
}

// Fetch скачивает пакет и распаковывает его.
//
// Ошибки: CodeRetrieval при сбое blob store, CodeMalformedPackage если
// архив повреждён. При любой ошибке scratch-директория удаляется.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*Package, error) {
	root := filepath.Join(f.scratch, safeSegment(req.User), safeSegment(req.Project), uuid.NewString())
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, domain.WrapError(domain.CodeRetrieval, "create scratch dir", err)
	}

	pkg := &Package{
		ArchivePath: filepath.Join(root, PackageFileName),
		root:        root,
		logger:      f.logger,
	}

	if err := f.fetch(ctx, req, pkg); err != nil {
		pkg.Close()
		return nil, err
	}

	f.logger.Debug("package fetched",
		"resource_id", req.ResourceID,
		"version", req.Version,
		"dir", pkg.Dir,
	)
	return pkg, nil
}

func (f *Fetcher) fetch(ctx context.Context, req FetchRequest, pkg *Package) error {
	err := f.store.Download(ctx, req.User, req.ResourceID, req.Version, pkg.ArchivePath)
	if err != nil {
		msg := fmt.Sprintf("download resource %s@%s", req.ResourceID, req.Version)
		if errors.Is(err, blob.ErrNotFound) {
			msg += ": not found"
		}
		return domain.WrapError(domain.CodeRetrieval, msg, err)
	}

	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.CodeRetrieval, "fetch cancelled", err)
	}

	dest := filepath.Join(filepath.Dir(pkg.ArchivePath), unpackDirName)
	if err := Unzip(pkg.ArchivePath, dest, f.maxBytes); err != nil {
		return domain.WrapError(domain.CodeMalformedPackage, "unpack package", err)
	}

	dir, err := packageRoot(dest)
	if err != nil {
		return domain.WrapError(domain.CodeMalformedPackage, "locate package root", err)
	}
	pkg.Dir = dir
	return nil
}

// packageRoot возвращает dir или его единственную поддиректорию,
// если архив был упакован вместе с папкой.
func packageRoot(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}

// safeSegment превращает имя пользователя или проекта в один сегмент пути.
func safeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("/", "_", `\`, "_").Replace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}
