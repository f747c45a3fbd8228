// Package ioutils provides file system utilities for the content root.
//
// # Extraction
//
// ExtractZip unpacks a downloaded archive into an item directory. It writes
// into a hidden staging directory first and renames it into place, so
// readers never see a half-extracted item:
//
//	err := ioutils.ExtractZip(ctx, "/content/42.zip", "/content/42")
//
// # Removal
//
// Unsubscribe and archive cleanup are best-effort and must not fail on
// paths that are already gone:
//
//	_ = ioutils.RemoveAllIfExists("/content/42")
//	_ = ioutils.RemoveFileIfExists("/content/42.zip")
//
// # Scanning
//
// ListItemDirs recovers installed items from the content root. Only
// directories named with decimal digits count:
//
//	names, err := ioutils.ListItemDirs("/content")
package ioutils
