package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrFileNotFound      = errors.New("filesystem: file not found")
	ErrDirectoryNotFound = errors.New("filesystem: directory not found")
	ErrInvalidPath       = errors.New("filesystem: invalid path")
)

// Filesystem reads and writes whole files by name inside a single directory.
type Filesystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, content []byte) error
}

type LocalFileSystem struct {
	root string
}

func NewLocalFileSystem(root string) (*LocalFileSystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	isDir, err := IsDirectory(abs)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, abs)
	}

	return &LocalFileSystem{root: abs}, nil
}

func (filesystem *LocalFileSystem) Root() string {
	return filesystem.root
}

// ReadFile returns the content of name. Any file that does not exist, including
// names that resolve outside the root, reports ErrFileNotFound.
func (filesystem *LocalFileSystem) ReadFile(name string) ([]byte, error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, err
	}

	return content, nil
}

// WriteFile creates or truncates name and writes content to it.
func (filesystem *LocalFileSystem) WriteFile(name string, content []byte) (err error) {
	path, err := filesystem.resolve(name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("filesystem: close %s: %w", name, closeErr))
		}
	}()

	if _, err := file.Write(content); err != nil {
		return err
	}

	return file.Sync()
}

// resolve maps a bare file name to a path inside the root.
func (filesystem *LocalFileSystem) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}

	return filepath.Join(filesystem.root, name), nil
}

func IsDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
