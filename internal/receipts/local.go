package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps receipts in a directory on disk. Files are served back
// by the receipts HTTP route under baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates the directory if needed.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocalStorage: create dir %q: %w", dir, err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Put writes the receipt to disk.
func (s *LocalStorage) Put(ctx context.Context, name string, u Upload) error {
	if !ValidObjectName(name) {
		return fmt.Errorf("Put: invalid object name %q", name)
	}
	_, body, err := sniff(u)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("Put: create file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("Put: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Put: close file: %w", err)
	}
	return nil
}

// Open opens a stored receipt. The content type is derived from the extension.
func (s *LocalStorage) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidObjectName(name) {
		return nil, "", fmt.Errorf("Open: %s: %w", name, ErrNotFound)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("Open: %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("Open: %w", err)
	}
	return f, mime.TypeByExtension(filepath.Ext(name)), nil
}

// URL returns the path under which the receipt is served.
func (s *LocalStorage) URL(name string) string {
	return s.baseURL + "/" + name
}

var _ Storage = (*LocalStorage)(nil)
