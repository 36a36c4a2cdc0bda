package archivefs

import (
	"io/fs"
	"time"

	"github.com/meigma/archivefs/internal/pathutil"
)

// FileInfo describes the file a logical path resolves to.
type FileInfo struct {
	// Path is the normalized logical path.
	Path string

	// Size is the uncompressed size in bytes.
	Size int64

	// ModTime is the modification time, zero when the archive records none.
	ModTime time.Time

	// Archive is the archive the content comes from, empty when a loose file
	// serves the path.
	Archive string
}

// Loose reports whether the loose filesystem serves the path.
func (i FileInfo) Loose() bool { return i.Archive == "" }

// entryInfo implements fs.FileInfo for resolved files.
type entryInfo struct {
	info FileInfo
}

func (ei *entryInfo) Name() string       { return pathutil.Base(ei.info.Path) }
func (ei *entryInfo) Size() int64        { return ei.info.Size }
func (ei *entryInfo) Mode() fs.FileMode  { return 0o444 }
func (ei *entryInfo) ModTime() time.Time { return ei.info.ModTime }
func (ei *entryInfo) IsDir() bool        { return false }

// Sys returns the FileInfo.
func (ei *entryInfo) Sys() any { return ei.info }

// dirInfo implements fs.FileInfo for directories.
type dirInfo struct {
	name string
}

func (di *dirInfo) Name() string       { return di.name }
func (di *dirInfo) Size() int64        { return 0 }
func (di *dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di *dirInfo) ModTime() time.Time { return time.Time{} }
func (di *dirInfo) IsDir() bool        { return true }
func (di *dirInfo) Sys() any           { return nil }
