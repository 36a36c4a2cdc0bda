// Package stargz reads eStargz blobs (seekable tar.gz or zstd:chunked) as
// archive.ArchiveFile values.
//
// Containers are recognised by a ".stargz" or ".esgz" extension together with
// a gzip or zstd magic. When a TOC digest is registered for an archive's base
// name, the table of contents is verified against it on open.
package stargz

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync/atomic"

	"github.com/containerd/stargz-snapshotter/estargz"
	"github.com/containerd/stargz-snapshotter/estargz/zstdchunked"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/pathutil"
)

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Interface compliance.
var (
	_ archive.Format      = (*Format)(nil)
	_ archive.ArchiveFile = (*Archive)(nil)
)

// Format is the archive.Format for eStargz blobs.
type Format struct {
	tocDigests map[string]digest.Digest
}

// Option configures a Format.
type Option func(*Format)

// WithTOCDigest requires the archive whose base name is name (compared
// case-insensitively) to have the given TOC digest.
func WithTOCDigest(name string, d digest.Digest) Option {
	return func(f *Format) {
		f.tocDigests[pathutil.Fold(name)] = d
	}
}

// New creates an eStargz Format.
func New(opts ...Option) *Format {
	f := &Format{tocDigests: make(map[string]digest.Digest)}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements archive.Format.
func (f *Format) Name() string { return "stargz" }

// Match implements archive.Format.
func (f *Format) Match(name string, header []byte) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".stargz", ".esgz":
	default:
		return false
	}
	return bytes.HasPrefix(header, magicGzip) || bytes.HasPrefix(header, magicZstd)
}

// Open implements archive.Format.
func (f *Format) Open(name string, r io.ReaderAt, size int64) (archive.ArchiveFile, error) {
	sr := io.NewSectionReader(r, 0, size)
	er, err := estargz.Open(sr, estargz.WithDecompressors(new(zstdchunked.Decompressor)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", archive.ErrInvalidHeader, err)
	}

	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if want, ok := f.tocDigests[pathutil.Fold(base)]; ok {
		if err := want.Validate(); err != nil {
			return nil, fmt.Errorf("toc digest for %s: %w", base, err)
		}
		if _, err := er.VerifyTOC(want); err != nil {
			return nil, fmt.Errorf("%w: %v", archive.ErrInvalidHeader, err)
		}
	}

	root, ok := er.Lookup("")
	if !ok {
		return nil, fmt.Errorf("%w: missing root entry", archive.ErrInvalidHeader)
	}
	var names []string
	var entries []archive.Entry
	collect(root, func(e *estargz.TOCEntry) {
		names = append(names, e.Name)
		entries = append(entries, archive.Entry{Name: e.Name, Size: e.Size, ModTime: e.ModTime()})
	})

	return &Archive{
		name:  name,
		r:     er,
		names: names,
		index: archive.NewIndex(entries),
	}, nil
}

// collect visits every regular file below dir.
func collect(dir *estargz.TOCEntry, visit func(*estargz.TOCEntry)) {
	dir.ForeachChild(func(base string, ent *estargz.TOCEntry) bool {
		switch ent.Type {
		case "dir":
			collect(ent, visit)
		case "reg":
			if base != estargz.PrefetchLandmark && base != estargz.NoPrefetchLandmark {
				visit(ent)
			}
		}
		return true
	})
}

// Archive is an opened eStargz blob.
type Archive struct {
	name   string
	r      *estargz.Reader
	names  []string
	index  *archive.Index
	closed atomic.Bool
}

// Name implements archive.ArchiveFile.
func (a *Archive) Name() string { return a.name }

// Format implements archive.ArchiveFile.
func (a *Archive) Format() string { return "stargz" }

// TOCDigest returns the digest of the blob's table of contents.
func (a *Archive) TOCDigest() digest.Digest { return a.r.TOCDigest() }

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
	sr, err := a.r.OpenFile(a.names[pos])
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return archive.NewSectionStream(sr, 0, sr.Size()), nil
}

// Close implements archive.ArchiveFile. The byte source is owned by the caller.
func (a *Archive) Close() error {
	a.closed.Store(true)
	return nil
}
