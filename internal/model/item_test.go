package model

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseItemID(t *testing.T) {
	tests := []struct {
		input   string
		want    ItemID
		wantErr bool
	}{
		{"123", 123, false},
		{"  456  ", 456, false},
		{"https://steamcommunity.com/sharedfiles/filedetails/?id=2463582957", 2463582957, false},
		{"https://example.com/item?foo=bar&id=77", 77, false},
		{"https://example.com/item?foo=bar", 0, true},
		{"https://example.com/item", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"0", 0, true},
		{"99999999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseItemID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseItemID(%q) = %d, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidItemID) {
					t.Errorf("error %v does not wrap ErrInvalidItemID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItemID(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseItemID(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsItemDirName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"123", true},
		{"0042", true},
		{"abc", false},
		{"12a", false},
		{"123.zip", false},
		{"", false},
		{"-1", false},
	}

	for _, tt := range tests {
		if got := IsItemDirName(tt.name); got != tt.want {
			t.Errorf("IsItemDirName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLocalPath(t *testing.T) {
	root := filepath.Join("content", "root")

	if got, want := LocalPath(root, 42), filepath.Join(root, "42"); got != want {
		t.Errorf("LocalPath = %q, want %q", got, want)
	}
	if got, want := ArchivePath(root, 42), filepath.Join(root, "42")+".zip"; got != want {
		t.Errorf("ArchivePath = %q, want %q", got, want)
	}

	item := NewItem(root, 42, StateSubscribed)
	if item.Path != LocalPath(root, 42) {
		t.Errorf("Item.Path = %q, want %q", item.Path, LocalPath(root, 42))
	}
}

func TestState_HostFlags(t *testing.T) {
	tests := []struct {
		state State
		want  uint32
	}{
		{StateNone, 0},
		{StateSubscribed, 0},
		{StateInstalling, HostFlagDownloading},
		{StateInstalled, HostFlagInstalled},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.HostFlags(); got != tt.want {
				t.Errorf("HostFlags() = %d, want %d", got, tt.want)
			}
		})
	}
}
