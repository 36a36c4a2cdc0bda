package archivefs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/archivefs/internal/testutil"
)

func TestFS_ReadFile(t *testing.T) {
	t.Parallel()

	fsys := newTestFS(t, nil, scenarioArchives(t))
	loadScenario(t, fsys)

	data, err := fs.ReadFile(fsys, "ui/icons/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = fs.ReadFile(fsys, "ui/none.png")
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = fsys.ReadFile("/ui/menu.xml")
	require.ErrorIs(t, err, fs.ErrInvalid, "io/fs names are unrooted")
}

func TestFS_Open(t *testing.T) {
	t.Parallel()

	fsys := newTestFS(t, nil, scenarioArchives(t))
	loadScenario(t, fsys)

	f, err := fsys.Open("ui/menu.xml")
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "menu.xml", info.Name())
	require.NoError(t, f.Close())

	_, err = fsys.Open(".")
	require.ErrorIs(t, err, fs.ErrInvalid)
	_, err = fsys.Open("ui/../ui/menu.xml")
	require.ErrorIs(t, err, fs.ErrInvalid)
}

func TestFS_Stat(t *testing.T) {
	t.Parallel()

	loose := testutil.LooseFS(t, testutil.File{Name: "maps/custom.map", Data: "map"})
	fsys := newTestFS(t, loose, scenarioArchives(t))
	loadScenario(t, fsys)

	info, err := fs.Stat(fsys, "ui/menu.xml")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, int64(len("<patched/>")), info.Size())
	assert.Equal(t, fs.FileMode(0o444), info.Mode())

	for _, dir := range []string{".", "ui", "ui/icons", "maps"} {
		info, err := fs.Stat(fsys, dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	info, err = fs.Stat(fsys, "maps/custom.map")
	require.NoError(t, err)
	fi, ok := info.Sys().(FileInfo)
	require.True(t, ok)
	assert.True(t, fi.Loose())

	_, err = fs.Stat(fsys, "sounds")
	require.ErrorIs(t, err, fs.ErrNotExist)
}
