package archive

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// HeaderSize is the number of leading bytes handed to Format.Match.
const HeaderSize = 512

// Opener dispatches sources to container formats by header sniffing.
type Opener struct {
	formats []Format
}

// NewOpener creates an Opener that tries formats in the given order.
func NewOpener(formats ...Format) *Opener {
	return &Opener{formats: compactFormats(formats)}
}

// Formats returns the names of the registered formats in match order.
func (o *Opener) Formats() []string {
	names := make([]string, len(o.formats))
	for i, f := range o.formats {
		names[i] = f.Name()
	}
	return names
}

// Open identifies and opens the container read from src.
//
// name is the archive's source path; it becomes the ArchiveFile's Name and
// its base name is used for extension matching. On success the returned
// archive owns src and closes it on Close. On failure src is left open.
func (o *Opener) Open(name string, src Source, size int64) (ArchiveFile, error) {
	header := make([]byte, min(int64(HeaderSize), max(size, 0)))
	n, err := src.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = header[:n]

	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	for _, f := range o.formats {
		if !f.Match(base, header) {
			continue
		}
		a, err := f.Open(name, src, size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		return &ownedArchive{ArchiveFile: a, src: src}, nil
	}
	return nil, ErrUnknownFormat
}

// ownedArchive closes its byte source together with the archive.
type ownedArchive struct {
	ArchiveFile
	src Source
}

func (a *ownedArchive) Close() error {
	return errors.Join(a.ArchiveFile.Close(), a.src.Close())
}

// Unwrap returns the archive produced by the format.
func (a *ownedArchive) Unwrap() ArchiveFile { return a.ArchiveFile }

// Unwrap returns the format-specific archive behind a, looking through the
// wrapper added by Opener. Other values are returned unchanged.
func Unwrap(a ArchiveFile) ArchiveFile {
	if u, ok := a.(interface{ Unwrap() ArchiveFile }); ok {
		return u.Unwrap()
	}
	return a
}

func compactFormats(formats []Format) []Format {
	out := make([]Format, 0, len(formats))
	for _, f := range formats {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
