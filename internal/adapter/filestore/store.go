// Package filestore writes and reads exports on a filesystem. It backs the
// "latest" export, the optional staging row and, for local runs, the object
// store itself.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const filePermissions = 0o644

// Store resolves keys relative to root on fs.
type Store struct {
	fs   afero.Fs
	root string
}

// New returns a store rooted at root. An empty root resolves keys as given.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

// NewOS returns a store on the host filesystem.
func NewOS(root string) *Store {
	return New(afero.NewOsFs(), root)
}

func (s *Store) path(key string) (string, error) {
	if s.root == "" {
		return filepath.Clean(key), nil
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.root, p); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("filestore: key %q escapes root", key)
	}
	return p, nil
}

// WriteObject replaces key with data. The bytes go to a temporary sibling
// first and are renamed into place, so readers never see a partial file.
func (s *Store) WriteObject(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("filestore: create %s: %w", dir, err)
		}
	}

	tempPath := p + ".tmp"
	if err := afero.WriteFile(s.fs, tempPath, data, filePermissions); err != nil {
		return fmt.Errorf("filestore: write %s: %w", tempPath, err)
	}
	if err := s.fs.Rename(tempPath, p); err != nil {
		_ = s.fs.Remove(tempPath)
		return fmt.Errorf("filestore: rename %s: %w", p, err)
	}
	return nil
}

// Open returns a reader for key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", p, err)
	}
	return f, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, p)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return ok, nil
}
