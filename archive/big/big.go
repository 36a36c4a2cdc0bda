// Package big reads BIG containers, the packed archive format used for game
// assets ("BIGF" and "BIG4" variants).
//
// Layout, all offsets relative to the start of the file:
//
//	magic      [4]byte  "BIGF" or "BIG4"
//	totalSize  uint32   little endian, informational
//	count      uint32   big endian, number of records
//	indexEnd   uint32   big endian, end of the record table
//	records    count × { offset uint32 BE, size uint32 BE, name NUL-terminated }
//
// Entry names use backslash separators. Entries are stored uncompressed.
package big

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync/atomic"

	"github.com/meigma/archivefs/archive"
)

// Container magics.
const (
	MagicBIGF = "BIGF"
	MagicBIG4 = "BIG4"
)

const (
	headerSize    = 16
	recordMinSize = 9 // offset + size + NUL
)

// Interface compliance.
var (
	_ archive.Format      = Format{}
	_ archive.ArchiveFile = (*Archive)(nil)
)

// Format is the archive.Format for BIG containers.
type Format struct{}

// Name implements archive.Format.
func (Format) Name() string { return "big" }

// Match implements archive.Format by checking the magic.
func (Format) Match(_ string, header []byte) bool {
	return bytes.HasPrefix(header, []byte(MagicBIGF)) || bytes.HasPrefix(header, []byte(MagicBIG4))
}

// Open implements archive.Format.
func (Format) Open(name string, r io.ReaderAt, size int64) (archive.ArchiveFile, error) {
	return Open(name, r, size)
}

type record struct {
	offset uint32
	size   uint32
}

// Archive is an opened BIG container.
type Archive struct {
	name    string
	magic   string
	r       io.ReaderAt
	records []record
	index   *archive.Index
	closed  atomic.Bool
}

// Open parses the BIG header and record table read from r.
// The container must not be modified while the Archive is in use.
func Open(name string, r io.ReaderAt, size int64) (*Archive, error) {
	var hdr [headerSize]byte
	if size < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", archive.ErrInvalidHeader, size)
	}
	if err := readAt(r, hdr[:], 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	magic := string(hdr[:4])
	if magic != MagicBIGF && magic != MagicBIG4 {
		return nil, fmt.Errorf("%w: bad magic %q", archive.ErrInvalidHeader, magic)
	}
	count := binary.BigEndian.Uint32(hdr[8:12])
	indexEnd := int64(binary.BigEndian.Uint32(hdr[12:16]))
	if indexEnd < headerSize || indexEnd > size {
		return nil, fmt.Errorf("%w: index end %d outside container of %d bytes", archive.ErrInvalidHeader, indexEnd, size)
	}
	if int64(count)*recordMinSize > indexEnd-headerSize {
		return nil, fmt.Errorf("%w: %d records do not fit in index of %d bytes", archive.ErrInvalidHeader, count, indexEnd-headerSize)
	}

	table := make([]byte, indexEnd-headerSize)
	if err := readAt(r, table, headerSize); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	records := make([]record, 0, count)
	entries := make([]archive.Entry, 0, count)
	for i := range count {
		if len(table) < recordMinSize {
			return nil, fmt.Errorf("%w: record %d truncated", archive.ErrInvalidHeader, i)
		}
		rec := record{
			offset: binary.BigEndian.Uint32(table[0:4]),
			size:   binary.BigEndian.Uint32(table[4:8]),
		}
		table = table[8:]
		nul := bytes.IndexByte(table, 0)
		if nul < 0 {
			return nil, fmt.Errorf("%w: record %d name not terminated", archive.ErrInvalidHeader, i)
		}
		entryName := string(table[:nul])
		table = table[nul+1:]

		if int64(rec.offset)+int64(rec.size) > size {
			return nil, fmt.Errorf("%w: entry %q [%d, +%d) outside container", archive.ErrInvalidHeader, entryName, rec.offset, rec.size)
		}
		records = append(records, rec)
		entries = append(entries, archive.Entry{Name: entryName, Size: int64(rec.size)})
	}

	return &Archive{
		name:    name,
		magic:   magic,
		r:       r,
		records: records,
		index:   archive.NewIndex(entries),
	}, nil
}

// readAt fills p, tolerating io.EOF on a complete read.
func readAt(r io.ReaderAt, p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Name implements archive.ArchiveFile.
func (a *Archive) Name() string { return a.name }

// Format implements archive.ArchiveFile.
func (a *Archive) Format() string { return "big" }

// Magic returns the container magic, MagicBIGF or MagicBIG4.
func (a *Archive) Magic() string { return a.magic }

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
	rec := a.records[pos]
	return archive.NewSectionStream(a.r, int64(rec.offset), int64(rec.size)), nil
}

// Close implements archive.ArchiveFile. The byte source is owned by the caller.
func (a *Archive) Close() error {
	a.closed.Store(true)
	return nil
}
