package model

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// ItemID is the opaque numeric identifier of a content item.
type ItemID uint64

// String renders the id in decimal, which is also its directory name.
func (id ItemID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// AppID identifies the application that owns a content item.
// Zero means the owner is unknown.
type AppID uint32

// State is the lifecycle state of an Item.
type State int

const (
	// StateNone means the item is not known to the registry.
	StateNone State = iota

	// StateSubscribed means interest was registered but nothing is on disk.
	StateSubscribed

	// StateInstalling means a download/extract is in flight, or a previous
	// attempt failed and the item was left here.
	StateInstalling

	// StateInstalled means the item's directory is extracted under the root.
	StateInstalled
)

// Host platform item state bits.
const (
	HostFlagInstalled   uint32 = 4
	HostFlagDownloading uint32 = 16
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSubscribed:
		return "subscribed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// HostFlags returns the platform state bits reported for s.
//
// Returns:
//   - HostFlagDownloading for StateInstalling
//   - HostFlagInstalled for StateInstalled
//   - 0 for StateNone and StateSubscribed
func (s State) HostFlags() uint32 {
	switch s {
	case StateInstalling:
		return HostFlagDownloading
	case StateInstalled:
		return HostFlagInstalled
	default:
		return 0
	}
}

// Item represents a content item known to the registry.
//
// Path is always LocalPath(root, ID); it is stored so callers holding a
// snapshot do not need the root.
type Item struct {
	// ID is the item identifier, unique within a registry.
	ID ItemID

	// State is the current lifecycle state.
	State State

	// Path is the extracted install directory of the item.
	Path string
}

// NewItem creates an Item whose path is computed from root and id.
func NewItem(root string, id ItemID, state State) *Item {
	return &Item{
		ID:    id,
		State: state,
		Path:  LocalPath(root, id),
	}
}

// LocalPath returns the install directory for id under root.
func LocalPath(root string, id ItemID) string {
	return filepath.Join(root, id.String())
}

// ArchivePath returns the transient archive path for id under root.
func ArchivePath(root string, id ItemID) string {
	return LocalPath(root, id) + ".zip"
}

// ErrInvalidItemID is returned by ParseItemID for input that carries no id.
var ErrInvalidItemID = errors.New("invalid item id")

// ParseItemID parses an item id from a decimal string or from a URL whose
// query contains an id parameter.
//
// Example:
//
//	ParseItemID("123")                                  // 123
//	ParseItemID("https://host/filedetails/?id=123&x=1") // 123
//	ParseItemID("abc")                                  // error
func ParseItemID(s string) (ItemID, error) {
	s = strings.TrimSpace(s)
	raw := s
	if !IsItemDirName(s) {
		u, err := url.Parse(s)
		if err != nil || u.RawQuery == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidItemID, s)
		}
		raw = u.Query().Get("id")
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidItemID, s)
	}
	return ItemID(n), nil
}

// IsItemDirName reports whether name consists only of decimal digits.
func IsItemDirName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}
