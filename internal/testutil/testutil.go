// Package testutil builds archive containers and loose filesystems for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"encoding/binary"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/containerd/stargz-snapshotter/estargz"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

// File is a named test payload. Order is preserved by the builders.
type File struct {
	Name string
	Data string
}

// Files builds a File list from alternating name, data arguments.
func Files(pairs ...string) []File {
	if len(pairs)%2 != 0 {
		panic("testutil.Files: odd number of arguments")
	}
	files := make([]File, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		files = append(files, File{Name: pairs[i], Data: pairs[i+1]})
	}
	return files
}

// MockSource implements archive.Source over an in-memory buffer.
type MockSource struct {
	*bytes.Reader
	Closed int
}

// NewMockSource returns a source backed by data.
func NewMockSource(data []byte) *MockSource {
	return &MockSource{Reader: bytes.NewReader(data)}
}

// Close records the call.
func (m *MockSource) Close() error {
	m.Closed++
	return nil
}

// BuildBIG encodes files as a BIGF container. Names are stored with
// backslash separators.
func BuildBIG(tb testing.TB, files []File) []byte {
	tb.Helper()

	indexEnd := 16
	for _, f := range files {
		indexEnd += 8 + len(f.Name) + 1
	}

	var index, data bytes.Buffer
	offset := indexEnd
	for _, f := range files {
		var rec [8]byte
		binary.BigEndian.PutUint32(rec[0:4], uint32(offset)) //nolint:gosec // test fixtures are small
		binary.BigEndian.PutUint32(rec[4:8], uint32(len(f.Data)))
		index.Write(rec[:])
		index.WriteString(strings.ReplaceAll(f.Name, "/", `\`))
		index.WriteByte(0)
		data.WriteString(f.Data)
		offset += len(f.Data)
	}

	var hdr [16]byte
	copy(hdr[0:4], "BIGF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(offset))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(files)))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(indexEnd))

	out := make([]byte, 0, offset)
	out = append(out, hdr[:]...)
	out = append(out, index.Bytes()...)
	out = append(out, data.Bytes()...)
	return out
}

// BuildZip encodes files as a zip archive using the given method
// (zip.Store, zip.Deflate or zstd.ZipMethodWinZip).
func BuildZip(tb testing.TB, files []File, method uint16) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   method,
			Modified: time.Date(2003, 2, 10, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			tb.Fatalf("create zip entry %s: %v", f.Name, err)
		}
		if _, err := io.WriteString(w, f.Data); err != nil {
			tb.Fatalf("write zip entry %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// BuildTar encodes files as an uncompressed tar stream, with directory
// headers for every parent.
func BuildTar(tb testing.TB, files []File) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	seen := make(map[string]bool)
	mtime := time.Date(2003, 2, 10, 12, 0, 0, 0, time.UTC)
	for _, f := range files {
		dir := ""
		for _, seg := range strings.Split(f.Name, "/")[:strings.Count(f.Name, "/")] {
			dir += seg + "/"
			if seen[dir] {
				continue
			}
			seen[dir] = true
			if err := tw.WriteHeader(&tar.Header{Typeflag: tar.TypeDir, Name: dir, Mode: 0o755, ModTime: mtime}); err != nil {
				tb.Fatalf("write tar dir %s: %v", dir, err)
			}
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.Name,
			Mode:     0o644,
			Size:     int64(len(f.Data)),
			ModTime:  mtime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			tb.Fatalf("write tar header %s: %v", f.Name, err)
		}
		if _, err := io.WriteString(tw, f.Data); err != nil {
			tb.Fatalf("write tar entry %s: %v", f.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		tb.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

// BuildStargz encodes files as an eStargz blob and returns it with its TOC
// digest.
func BuildStargz(tb testing.TB, files []File, opts ...estargz.Option) ([]byte, digest.Digest) {
	tb.Helper()

	tarData := BuildTar(tb, files)
	sr := io.NewSectionReader(bytes.NewReader(tarData), 0, int64(len(tarData)))
	blob, err := estargz.Build(sr, opts...)
	if err != nil {
		tb.Fatalf("build estargz: %v", err)
	}
	defer blob.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, blob); err != nil {
		tb.Fatalf("read estargz: %v", err)
	}
	return buf.Bytes(), blob.TOCDigest()
}

// LooseFS returns an in-memory filesystem holding files.
func LooseFS(tb testing.TB, files ...File) afero.Fs {
	tb.Helper()

	fsys := afero.NewMemMapFs()
	for _, f := range files {
		WriteFile(tb, fsys, f.Name, []byte(f.Data))
	}
	return fsys
}

// WriteFile writes data to name in fsys, creating parent directories.
func WriteFile(tb testing.TB, fsys afero.Fs, name string, data []byte) {
	tb.Helper()

	name = filepath.FromSlash(name)
	if err := fsys.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(name), err)
	}
	if err := afero.WriteFile(fsys, name, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
}
