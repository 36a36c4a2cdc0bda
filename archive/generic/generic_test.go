package generic

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/testutil"
)

var testFiles = testutil.Files(
	"ui/menu.xml", "<menu/>",
	"ui/icons/a.png", "png bytes",
)

func TestArchive_Tar(t *testing.T) {
	t.Parallel()

	data := testutil.BuildTar(t, testFiles)
	a, err := New().Open("mods/extra.tar", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "tar", a.Format())
	assert.Len(t, a.Entries(), 2)

	s, err := a.Open("UI/ICONS/A.PNG")
	require.NoError(t, err)
	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(got))
}

func TestArchive_Zip(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, testFiles, zip.Deflate)
	a, err := New().Open("extra.zip", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, a.Entries(), 2)
}

func TestArchive_EntryTooLarge(t *testing.T) {
	t.Parallel()

	data := testutil.BuildTar(t, testutil.Files("big.bin", string(bytes.Repeat([]byte("x"), 2048))))
	a, err := New(WithMaxEntrySize(16)).Open("x.tar", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	_, err = a.Open("big.bin")
	require.ErrorIs(t, err, archive.ErrEntryTooLarge)
}

func TestFormat_NotAnArchive(t *testing.T) {
	t.Parallel()

	data := []byte("just some loose text, not a container")
	_, err := New().Open("readme.txt", bytes.NewReader(data), int64(len(data)))
	require.ErrorIs(t, err, archive.ErrUnknownFormat)
}

func TestFormat_MatchesEverything(t *testing.T) {
	t.Parallel()

	assert.True(t, New().Match("anything", nil))
}
