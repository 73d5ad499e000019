// Package filesystem routes every file access through a swappable afero backend,
// so tests can run against memory instead of the disk.
package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var backend = afero.Afero{Fs: afero.NewOsFs()}

// API returns the current backend.
func API() afero.Afero {
	return backend
}

// SetOsFs switches to the operating system filesystem.
func SetOsFs() {
	backend = afero.Afero{Fs: afero.NewOsFs()}
}

// SetMemMapFs switches to an empty in-memory filesystem.
func SetMemMapFs() {
	backend = afero.Afero{Fs: afero.NewMemMapFs()}
}

// WriteAtomic replaces path with data through a sibling temporary file,
// so readers never observe a partially written file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if err := backend.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := backend.WriteFile(tmp, data, perm); err != nil {
		return err
	}

	if err := backend.Rename(tmp, path); err != nil {
		_ = backend.Remove(tmp)
		return err
	}

	return nil
}

// GacheFs lets gache persist its snapshots through the current backend.
type GacheFs struct{}

func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return backend.OpenFile(name, flag, perm)
}

func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return backend.MkdirAll(path, perm)
}
