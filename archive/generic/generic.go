// Package generic opens any container github.com/mholt/archives can
// identify (tar, compressed tar, 7z, rar, zip) as an archive.ArchiveFile.
//
// The format matches every source, so it must be registered last. Sources
// that are not archives fail with archive.ErrUnknownFormat. Entries are read
// into memory on open.
package generic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync/atomic"

	"github.com/mholt/archives"

	"github.com/meigma/archivefs/archive"
)

// Interface compliance.
var (
	_ archive.Format      = (*Format)(nil)
	_ archive.ArchiveFile = (*Archive)(nil)
)

// Format is the catch-all archive.Format.
type Format struct {
	ctx          context.Context
	maxEntrySize int64
}

// Option configures a Format.
type Option func(*Format)

// WithContext sets the context used for identification and extraction.
// If not set, context.Background() is used.
func WithContext(ctx context.Context) Option {
	return func(f *Format) {
		f.ctx = ctx
	}
}

// WithMaxEntrySize limits how many bytes of an entry are read into memory.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit int64) Option {
	return func(f *Format) {
		f.maxEntrySize = limit
	}
}

// New creates the catch-all Format.
func New(opts ...Option) *Format {
	f := &Format{
		ctx:          context.Background(),
		maxEntrySize: archive.DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements archive.Format.
func (f *Format) Name() string { return "generic" }

// Match implements archive.Format. Identification happens in Open.
func (f *Format) Match(string, []byte) bool { return true }

// Open implements archive.Format.
func (f *Format) Open(name string, r io.ReaderAt, size int64) (archive.ArchiveFile, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	format, _, err := archives.Identify(f.ctx, base, io.NewSectionReader(r, 0, size))
	if errors.Is(err, archives.NoMatch) {
		return nil, archive.ErrUnknownFormat
	}
	if err != nil {
		return nil, fmt.Errorf("identify format: %w", err)
	}
	ex, ok := format.(archives.Extractor)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an archive", archive.ErrUnknownFormat, format.Extension())
	}

	fsys := &archives.ArchiveFS{
		Stream:  io.NewSectionReader(r, 0, size),
		Format:  ex,
		Context: f.ctx,
	}

	var names []string
	var entries []archive.Entry
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		names = append(names, p)
		entries = append(entries, archive.Entry{Name: p, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", archive.ErrInvalidHeader, err)
	}

	return &Archive{
		name:         name,
		format:       strings.TrimPrefix(format.Extension(), "."),
		fsys:         fsys,
		names:        names,
		index:        archive.NewIndex(entries),
		maxEntrySize: f.maxEntrySize,
	}, nil
}

// Archive is a container opened through mholt/archives.
type Archive struct {
	name         string
	format       string
	fsys         fs.FS
	names        []string
	index        *archive.Index
	maxEntrySize int64
	closed       atomic.Bool
}

// Name implements archive.ArchiveFile.
func (a *Archive) Name() string { return a.name }

// Format implements archive.ArchiveFile. It reports the identified
// extension, such as "tar" or "tar.gz".
func (a *Archive) Format() string { return a.format }

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
	entry, pos, ok := a.index.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: archive.ErrEntryNotFound}
	}
	f, err := a.fsys.Open(a.names[pos])
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer f.Close()
	data, err := archive.ReadAllLimit(f, entry.Size, a.maxEntrySize)
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
