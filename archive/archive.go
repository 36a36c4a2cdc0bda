package archive

import (
	"errors"
	"io"
	"time"
)

// DefaultMaxEntrySize caps how much of a compressed entry is decoded into
// memory (256MB).
const DefaultMaxEntrySize = 256 << 20

// Sentinel errors.
var (
	// ErrUnknownFormat is returned when no registered format recognises a source.
	ErrUnknownFormat = errors.New("archive: unknown format")

	// ErrInvalidHeader is returned when a container fails header validation.
	ErrInvalidHeader = errors.New("archive: invalid header")

	// ErrEntryNotFound is returned when an entry does not exist in the container.
	ErrEntryNotFound = errors.New("archive: entry not found")

	// ErrEntryTooLarge is returned when an entry exceeds the decode limit.
	ErrEntryTooLarge = errors.New("archive: entry too large")

	// ErrClosed is returned when an archive is used after Close.
	ErrClosed = errors.New("archive: closed")
)

// Entry describes a file stored in a container.
type Entry struct {
	// Name is the slash-separated path relative to the archive root, with the
	// case used by the container.
	Name string

	// Size is the uncompressed size in bytes.
	Size int64

	// ModTime is the entry's modification time, zero if the format has none.
	ModTime time.Time
}

// Stream is a readable entry with a known length.
type Stream interface {
	io.ReadSeekCloser
	Size() int64
}

// ArchiveFile is a single opened container.
//
// Implementations resolve entry names case-insensitively and accept either
// separator style. ArchiveFile values are safe for concurrent Open calls.
//
//nolint:revive // ArchiveFile mirrors the name used throughout the engine
type ArchiveFile interface {
	// Name returns the source path the archive was opened from.
	Name() string

	// Format returns the name of the container format.
	Format() string

	// Entries returns every file entry. Directories are implied by paths and
	// are not listed.
	Entries() []Entry

	// Stat returns the entry for name.
	Stat(name string) (Entry, error)

	// Open returns a stream over the named entry.
	Open(name string) (Stream, error)

	// Close releases the container.
	Close() error
}

// Source is the byte source a container is read from.
type Source interface {
	io.ReaderAt
	io.Closer
}

// Format recognises and opens one container format.
type Format interface {
	// Name returns a short identifier such as "big" or "zip".
	Name() string

	// Match reports whether the archive looks like this format, given its base
	// name and up to HeaderSize leading bytes.
	Match(name string, header []byte) bool

	// Open parses the container. Header validation happens here; a container
	// that fails it must return an error wrapping ErrInvalidHeader.
	Open(name string, r io.ReaderAt, size int64) (ArchiveFile, error)
}
