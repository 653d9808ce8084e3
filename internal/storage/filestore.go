// Package storage keeps uploaded files under the public asset directory.
// Paths handed out are public, slash-separated and rooted at that directory,
// e.g. /images/products/3f0c....png.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ProductImagesDir is the public sub-directory for product images.
const ProductImagesDir = "images/products"

// FileStore is the file collaborator used by the catalog and the lifecycle engine.
type FileStore interface {
	// Save writes r under a freshly generated name with the given extension (".png")
	// inside dir and returns the public path.
	Save(dir, ext string, r io.Reader) (string, error)
	Delete(publicPath string) error
	Exists(publicPath string) bool
}

// ErrInvalidPath is returned for public paths that escape the root.
var ErrInvalidPath = errors.New("storage: invalid path")

// DiskStore is a FileStore on the local filesystem.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: root}
}

func (s *DiskStore) Root() string { return s.root }

func (s *DiskStore) Save(dir, ext string, r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Join(s.root, filepath.FromSlash(dir)), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	public := "/" + path.Join(dir, uuid.NewString()+strings.ToLower(ext))
	full, err := s.resolve(public)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("storage: close file: %w", err)
	}
	return public, nil
}

// Delete removes the file. A missing file is not an error.
func (s *DiskStore) Delete(publicPath string) error {
	full, err := s.resolve(publicPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

func (s *DiskStore) Exists(publicPath string) bool {
	full, err := s.resolve(publicPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

func (s *DiskStore) resolve(publicPath string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(publicPath))
	if clean == "/" || strings.Contains(publicPath, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
