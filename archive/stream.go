package archive

import (
	"bytes"
	"fmt"
	"io"
)

// sectionStream serves an entry straight from the container bytes.
type sectionStream struct {
	*io.SectionReader
}

// NewSectionStream returns a Stream over a byte range of a container.
// Closing the stream does not close the container.
func NewSectionStream(r io.ReaderAt, off, n int64) Stream {
	return sectionStream{io.NewSectionReader(r, off, n)}
}

func (sectionStream) Close() error { return nil }

// bytesStream serves an entry that was decoded into memory.
type bytesStream struct {
	*bytes.Reader
}

// NewBytesStream returns a Stream over data.
func NewBytesStream(data []byte) Stream {
	return bytesStream{bytes.NewReader(data)}
}

func (bytesStream) Close() error { return nil }

// ReadAllLimit reads r to EOF into memory.
//
// sizeHint, when positive and a limit is set, pre-sizes the buffer. Reading more than limit bytes
// returns ErrEntryTooLarge. A limit of zero or less disables the check.
func ReadAllLimit(r io.Reader, sizeHint, limit int64) ([]byte, error) {
	if limit > 0 && sizeHint > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrEntryTooLarge, sizeHint, limit)
	}
	var buf bytes.Buffer
	if sizeHint > 0 && limit > 0 {
		buf.Grow(int(sizeHint))
	}
	src := r
	if limit > 0 {
		src = &io.LimitedReader{R: r, N: limit + 1}
	}
	if _, err := buf.ReadFrom(src); err != nil {
		return nil, err
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: exceeds limit %d", ErrEntryTooLarge, limit)
	}
	return buf.Bytes(), nil
}
