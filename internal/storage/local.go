package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a directory. The relay serves that
// directory at BaseURL.
type LocalStore struct {
	root    string
	baseURL string
}

var _ Uploader = (*LocalStore)(nil)

// NewLocalStore creates root if needed.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: baseURL}, nil
}

// Root returns the directory objects are written to.
func (s *LocalStore) Root() string { return s.root }

// Upload implements Uploader. Objects are written to a temp file and renamed
// into place.
func (s *LocalStore) Upload(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename object: %w", err)
	}
	return joinURL(s.baseURL, filepath.ToSlash(rel)), nil
}
