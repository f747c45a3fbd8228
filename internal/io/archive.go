package ioutils

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractZip extracts archivePath into dest atomically.
//
// Entries are first written to a staging directory next to dest. Only after
// every entry is written is any existing dest removed and the staging
// directory renamed into place, so a failed extraction never leaves a
// partially populated dest. The staging directory is always removed on
// failure.
//
// Entries whose names would escape dest are rejected.
func ExtractZip(ctx context.Context, archivePath, dest string) (err error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	parent := filepath.Dir(dest)
	if err := EnsureDir(parent); err != nil {
		return fmt.Errorf("prepare parent dir: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+"-extract-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(staging)
		}
	}()

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := extractZipEntry(file, staging); err != nil {
			return err
		}
	}

	if err := RemoveAllIfExists(dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}

func extractZipEntry(file *zip.File, root string) error {
	target, err := safeJoin(root, file.Name)
	if err != nil {
		return err
	}

	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", target, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("copy file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// safeJoin resolves an archive entry name under root, rejecting absolute
// names and names that climb out of root.
func safeJoin(root, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("zip entry %q: absolute path", name)
	}
	target := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("zip entry %q: escapes destination", name)
	}
	return target, nil
}
