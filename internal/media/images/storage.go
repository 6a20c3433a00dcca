// Package images provides downloaded image storage, inspection and conversion.
package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bandreports/bandreports/internal/util"
)

// Storage manages a flat directory of image files keyed by file name.
// The directory doubles as a cache: an existing file is never fetched again.
type Storage struct {
	basePath string
}

// NewStorage creates a Storage rooted at basePath, creating the directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	return &Storage{basePath: basePath}, nil
}

// Save stores image data under name. The write is atomic.
func (s *Storage) Save(name string, imgData []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if len(imgData) == 0 {
		return fmt.Errorf("image data cannot be empty")
	}

	if err := util.WriteFileAtomic(s.Path(name), imgData, 0o644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}

// Get retrieves the image stored under name.
func (s *Storage) Get(name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image not found for %s: %w", name, err)
		}
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// Exists reports whether a regular file is stored under name.
func (s *Storage) Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// Path returns the full filesystem path for name.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.basePath, name)
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.basePath
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid image name %q", name)
	}
	return nil
}
