package zipfmt

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/testutil"
)

func openZip(t *testing.T, f *Format, data []byte) archive.ArchiveFile {
	t.Helper()
	a, err := f.Open("test.zip", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return a
}

func readEntry(t *testing.T, a archive.ArchiveFile, name string) string {
	t.Helper()
	s, err := a.Open(name)
	require.NoError(t, err)
	defer s.Close()
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, int64(len(got)), s.Size())
	return string(got)
}

func TestArchive_Methods(t *testing.T) {
	t.Parallel()

	files := testutil.Files(
		"Maps/Map1/Map1.map", "map payload",
		"ui/menu.xml", "<menu/>",
	)
	tests := []struct {
		name   string
		method uint16
	}{
		{"store", zip.Store},
		{"deflate", zip.Deflate},
		{"zstd", zstd.ZipMethodWinZip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := openZip(t, New(), testutil.BuildZip(t, files, tt.method))
			assert.Equal(t, "zip", a.Format())
			assert.Len(t, a.Entries(), 2)
			assert.Equal(t, "map payload", readEntry(t, a, "maps/map1/MAP1.MAP"))
			assert.Equal(t, "<menu/>", readEntry(t, a, `UI\menu.xml`))
		})
	}
}

func TestArchive_StoredEntryIsSeekable(t *testing.T) {
	t.Parallel()

	a := openZip(t, New(), testutil.BuildZip(t, testutil.Files("a.txt", "0123456789"), zip.Store))
	s, err := a.Open("a.txt")
	require.NoError(t, err)
	_, err = s.Seek(5, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "56789", string(rest))
}

func TestArchive_SkipsDirectories(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("ui/")
	require.NoError(t, err)
	w, err := zw.Create("ui/menu.xml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "x")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	a := openZip(t, New(), buf.Bytes())
	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ui/menu.xml", entries[0].Name)
}

func TestArchive_EntryTooLarge(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, testutil.Files("big.bin", string(bytes.Repeat([]byte("x"), 1024))), zip.Deflate)
	a := openZip(t, New(WithMaxEntrySize(100)), data)
	_, err := a.Open("big.bin")
	require.ErrorIs(t, err, archive.ErrEntryTooLarge)
}

func TestArchive_Missing(t *testing.T) {
	t.Parallel()

	a := openZip(t, New(), testutil.BuildZip(t, testutil.Files("a.txt", "a"), zip.Store))
	_, err := a.Open("b.txt")
	require.ErrorIs(t, err, archive.ErrEntryNotFound)

	require.NoError(t, a.Close())
	_, err = a.Open("a.txt")
	require.ErrorIs(t, err, archive.ErrClosed)
}

func TestFormat_InvalidHeader(t *testing.T) {
	t.Parallel()

	data := []byte("PK\x03\x04 but not really a zip archive")
	_, err := New().Open("bad.zip", bytes.NewReader(data), int64(len(data)))
	require.ErrorIs(t, err, archive.ErrInvalidHeader)
}

func TestFormat_Match(t *testing.T) {
	t.Parallel()

	f := New()
	assert.True(t, f.Match("a.zip", []byte("PK\x03\x04rest")))
	assert.True(t, f.Match("a.zip", []byte("PK\x05\x06rest")))
	assert.False(t, f.Match("a.zip", []byte("BIGF")))
}

func TestDecoderPool_Reuse(t *testing.T) {
	t.Parallel()

	f := New(WithDecoderConcurrency(-1))
	data := testutil.BuildZip(t, testutil.Files("a.txt", "alpha", "b.txt", "beta"), zstd.ZipMethodWinZip)
	a := openZip(t, f, data)
	for range 3 {
		assert.Equal(t, "alpha", readEntry(t, a, "a.txt"))
		assert.Equal(t, "beta", readEntry(t, a, "b.txt"))
	}
}
