// Package fs wraps the filesystem operations used by the proxy.
package fs

import (
	"os"
	"path/filepath"

	"go.uber.org/fx"
)

//go:generate mockgen -source=fs.go -destination=fsmock/fs_mock.go -package=fsmock

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// ProxyFS will wrap the filesystem operations used by the proxy.
type ProxyFS interface {
	MkdirAll(path string) error
	ReadFile(name string) ([]byte, error)
	// WriteFileAtomic replaces the contents of name in a single rename so a
	// concurrent reader never observes a partially written file.
	WriteFileAtomic(name string, data []byte) error
	FileExists(path string) (bool, error)
	DirExists(path string) (bool, error)
	Remove(name string) error
}

type fsImpl struct{}

// New creates a new ProxyFS.
func New() ProxyFS {
	return fsImpl{}
}

// MkdirAll creates a directory and all its parents.
func (fsImpl) MkdirAll(path string) error { return os.MkdirAll(path, os.ModePerm) }

// ReadFile reads the named file.
func (fsImpl) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFileAtomic writes data to a temp file next to name and renames it into place.
func (fsImpl) WriteFileAtomic(name string, data []byte) error {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), name); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (fsImpl) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (fsImpl) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Remove removes the named file.
func (fsImpl) Remove(name string) error { return os.Remove(name) }
