package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileStore abstracts where uploaded files land. The returned path is the
// public path the API serves the file under.
type FileStore interface {
	Store(ctx context.Context, originalName string, reader io.Reader) (string, error)
	Remove(ctx context.Context, publicPath string) error
}

// LocalStore writes files beneath a fixed uploads directory served statically
// at publicPrefix. Filenames are prefixed with a millisecond timestamp so
// concurrent uploads of the same name never collide.
type LocalStore struct {
	root         string
	publicPrefix string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewLocalStore constructs a disk-backed file store.
func NewLocalStore(root, publicPrefix string, logger zerolog.Logger) *LocalStore {
	return &LocalStore{
		root:         filepath.Clean(root),
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		logger:       logger.With().Str("component", "local_store").Logger(),
		now:          time.Now,
	}
}

// Store writes the reader to disk under a generated unique name and returns
// the public path. The uploads directory is created if absent.
func (s *LocalStore) Store(ctx context.Context, originalName string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create uploads directory: %w", err)
	}

	name := fmt.Sprintf("page_%d_%s", s.now().UnixMilli(), sanitizeFileName(originalName))
	diskPath := filepath.Join(s.root, name)

	file, err := os.OpenFile(diskPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(diskPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(diskPath)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return path.Join(s.publicPrefix, name), nil
}

// Remove deletes the file behind a previously returned public path. A missing
// file is not an error.
func (s *LocalStore) Remove(ctx context.Context, publicPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := path.Base(strings.TrimSpace(publicPath))
	if name == "" || name == "." || name == "/" {
		return nil
	}

	diskPath := filepath.Join(s.root, name)
	if err := os.Remove(diskPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "icon"
	}
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
