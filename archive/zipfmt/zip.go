// Package zipfmt reads zip archives as archive.ArchiveFile values.
//
// Stored entries are served directly from the container; deflate and zstd
// (method 93) entries are decoded into memory up to a size limit.
package zipfmt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/archivefs/archive"
)

// DefaultMaxDecoderMemory is the default zstd decoder memory limit (256MB).
const DefaultMaxDecoderMemory = 256 << 20

var (
	magicLocal = []byte("PK\x03\x04")
	magicEmpty = []byte("PK\x05\x06")
)

// Interface compliance.
var (
	_ archive.Format      = (*Format)(nil)
	_ archive.ArchiveFile = (*Archive)(nil)
)

// Format is the archive.Format for zip archives.
type Format struct {
	maxEntrySize       int64
	maxDecoderMemory   uint64
	decoderConcurrency int
	pool               *decoderPool
}

// Option configures a Format.
type Option func(*Format)

// WithMaxEntrySize limits how many bytes of a compressed entry are decoded.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit int64) Option {
	return func(f *Format) {
		f.maxEntrySize = limit
	}
}

// WithMaxDecoderMemory limits the memory used by each zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(f *Format) {
		f.maxDecoderMemory = limit
	}
}

// WithDecoderConcurrency sets the zstd decoder concurrency (default: 1).
// Values < 0 are treated as 0 (use GOMAXPROCS).
func WithDecoderConcurrency(n int) Option {
	return func(f *Format) {
		if n < 0 {
			n = 0
		}
		f.decoderConcurrency = n
	}
}

// New creates a zip Format. Archives opened through the same Format share a
// zstd decoder pool.
func New(opts ...Option) *Format {
	f := &Format{
		maxEntrySize:       archive.DefaultMaxEntrySize,
		maxDecoderMemory:   DefaultMaxDecoderMemory,
		decoderConcurrency: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.pool = newDecoderPool(f.maxDecoderMemory, f.decoderConcurrency)
	return f
}

// Name implements archive.Format.
func (f *Format) Name() string { return "zip" }

// Match implements archive.Format by checking the local file header magic.
func (f *Format) Match(_ string, header []byte) bool {
	return bytes.HasPrefix(header, magicLocal) || bytes.HasPrefix(header, magicEmpty)
}

// Open implements archive.Format.
func (f *Format) Open(name string, r io.ReaderAt, size int64) (archive.ArchiveFile, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", archive.ErrInvalidHeader, err)
		}
		return nil, err
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, f.pool.decompressor())

	files := make([]*zip.File, 0, len(zr.File))
	entries := make([]archive.Entry, 0, len(zr.File))
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, "/") || zf.FileInfo().IsDir() {
			continue
		}
		files = append(files, zf)
		entries = append(entries, archive.Entry{
			Name:    zf.Name,
			Size:    int64(zf.UncompressedSize64), //nolint:gosec // sizes beyond int64 are rejected on open
			ModTime: zf.Modified,
		})
	}

	return &Archive{
		name:         name,
		r:            r,
		files:        files,
		index:        archive.NewIndex(entries),
		maxEntrySize: f.maxEntrySize,
	}, nil
}

// Archive is an opened zip archive.
type Archive struct {
	name         string
	r            io.ReaderAt
	files        []*zip.File
	index        *archive.Index
	maxEntrySize int64
	closed       atomic.Bool
}

// Name implements archive.ArchiveFile.
func (a *Archive) Name() string { return a.name }

// Format implements archive.ArchiveFile.
func (a *Archive) Format() string { return "zip" }

// Entries implements archive.ArchiveFile.
func (a *Archive) Entries() []archive.Entry {
	return a.index.Entries()
}

// Stat implements archive.ArchiveFile.
func (a *Archive) Stat(name string) (archive.Entry, error) {
	if a.closed.Load() {
		return archive.Entry{}, &fs.PathError{Op: "stat", Path: name, Err: archive.ErrClosed}
	}
	e, _, ok := a.index.Lookup(name)
	if !ok {
		return archive.Entry{}, &fs.PathError{Op: "stat", Path: name, Err: archive.ErrEntryNotFound}
	}
	return e, nil
}

// Open implements archive.ArchiveFile.
func (a *Archive) Open(name string) (archive.Stream, error) {
	if a.closed.Load() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: archive.ErrClosed}
	}
	_, pos, ok := a.index.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: archive.ErrEntryNotFound}
	}
	zf := a.files[pos]

	if zf.Method == zip.Store && zf.UncompressedSize64 == zf.CompressedSize64 {
		off, err := zf.DataOffset()
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return archive.NewSectionStream(a.r, off, int64(zf.UncompressedSize64)), nil //nolint:gosec // bounded by container size
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer rc.Close()
	data, err := archive.ReadAllLimit(rc, int64(zf.UncompressedSize64), a.maxEntrySize) //nolint:gosec // checked by ReadAllLimit
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return archive.NewBytesStream(data), nil
}

// Close implements archive.ArchiveFile. The byte source is owned by the caller.
func (a *Archive) Close() error {
	a.closed.Store(true)
	return nil
}
