package ioutils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/workshop-downloader/internal/model"
)

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// RemoveFileIfExists deletes a single file. A missing file is not an error.
func RemoveFileIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAllIfExists deletes a directory tree. A missing directory is not an error.
func RemoveAllIfExists(path string) error {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(path)
}

// ListItemDirs returns the names of the immediate subdirectories of root
// whose names consist only of decimal digits, in directory-listing order.
//
// Example:
//
//	// root contains 123/, 456/, abc/, 789.zip
//	names, _ := ListItemDirs(root) // ["123", "456"]
func ListItemDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || !model.IsItemDirName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// DirUsage returns the total size of regular files under path and the
// directory's own modification time.
func DirUsage(path string) (int64, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, time.Time{}, err
	}

	var size int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			size += fi.Size()
		}
		return nil
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	return size, info.ModTime(), nil
}
