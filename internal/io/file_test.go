package ioutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListItemDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"123", "456", "abc", "12a"} {
		if err := os.Mkdir(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "789"), []byte("file, not dir"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "123.zip"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	names, err := ListItemDirs(root)
	if err != nil {
		t.Fatalf("ListItemDirs failed: %v", err)
	}
	if len(names) != 2 || names[0] != "123" || names[1] != "456" {
		t.Errorf("ListItemDirs = %v, want [123 456]", names)
	}
}

func TestRemoveIfExists(t *testing.T) {
	root := t.TempDir()

	if err := RemoveFileIfExists(filepath.Join(root, "missing.zip")); err != nil {
		t.Errorf("RemoveFileIfExists on missing file: %v", err)
	}
	if err := RemoveAllIfExists(filepath.Join(root, "missing")); err != nil {
		t.Errorf("RemoveAllIfExists on missing dir: %v", err)
	}

	dir := filepath.Join(root, "42")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := RemoveAllIfExists(dir); err != nil {
		t.Fatalf("RemoveAllIfExists: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("directory should be removed")
	}
}

func TestDirUsage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	size, mod, err := DirUsage(dir)
	if err != nil {
		t.Fatalf("DirUsage failed: %v", err)
	}
	if size != 150 {
		t.Errorf("size = %d, want 150", size)
	}
	if mod.IsZero() {
		t.Error("mod time should be set")
	}
}
