package dirtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_FindOwner(t *testing.T) {
	t.Parallel()

	tr := New()
	res := tr.Merge("base.big", []string{"ui/menu.xml", "ui/icons/a.png"}, "", PlaceAtRoot, LastWins)
	assert.Equal(t, 2, res.Bound)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 2, tr.Len())

	owner, ok := tr.FindOwner("ui/icons/a.png")
	require.True(t, ok)
	assert.Equal(t, "base.big", owner)

	_, ok = tr.FindOwner("ui/icons")
	assert.False(t, ok, "directories are not files")
	_, ok = tr.FindOwner("ui/missing.xml")
	assert.False(t, ok)
	_, ok = tr.FindOwner("nope/menu.xml")
	assert.False(t, ok)
	_, ok = tr.FindOwner("")
	assert.False(t, ok)
}

func TestMerge_LastLoadWins(t *testing.T) {
	t.Parallel()

	load := func(order ...string) *Tree {
		tr := New()
		for _, id := range order {
			tr.Merge(id, []string{"/x/y.dat"}, "", PlaceAtRoot, LastWins)
		}
		return tr
	}

	owner, _ := load("A", "B").FindOwner("/x/y.dat")
	assert.Equal(t, "B", owner)
	owner, _ = load("B", "A").FindOwner("/x/y.dat")
	assert.Equal(t, "A", owner)
}

func TestMerge_ReportsConflicts(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("base.big", []string{"ui/menu.xml", "ui/icons/a.png"}, "", PlaceAtRoot, LastWins)
	res := tr.Merge("patch.big", []string{`UI\Menu.xml`}, "", PlaceAtRoot, LastWins)

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, "UI/Menu.xml", c.Path)
	assert.Equal(t, Binding{Archive: "patch.big", Entry: `UI\Menu.xml`}, c.Kept)
	assert.Equal(t, Binding{Archive: "base.big", Entry: "ui/menu.xml"}, c.Dropped)
	assert.Equal(t, 2, tr.Len(), "replacing an owner does not add a file")

	b, ok := tr.Lookup("ui/menu.xml")
	require.True(t, ok)
	assert.Equal(t, `UI\Menu.xml`, b.Entry)
}

func TestMerge_FirstWins(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("base.big", []string{"ui/menu.xml"}, "", PlaceAtRoot, FirstWins)
	res := tr.Merge("patch.big", []string{"ui/menu.xml", "ui/new.xml"}, "", PlaceAtRoot, FirstWins)

	assert.Equal(t, 1, res.Bound)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "base.big", res.Conflicts[0].Kept.Archive)
	assert.Equal(t, "patch.big", res.Conflicts[0].Dropped.Archive)

	owner, _ := tr.FindOwner("ui/menu.xml")
	assert.Equal(t, "base.big", owner)
	owner, _ = tr.FindOwner("ui/new.xml")
	assert.Equal(t, "patch.big", owner)
}

func TestMerge_SameArchiveDuplicateIsNotAConflict(t *testing.T) {
	t.Parallel()

	tr := New()
	res := tr.Merge("a.big", []string{"x.txt", "X.TXT"}, "", PlaceAtRoot, LastWins)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 1, tr.Len())
}

func TestMerge_SingleOwnerAfterManyMerges(t *testing.T) {
	t.Parallel()

	tr := New()
	ids := []string{"a.big", "b.big", "c.big", "a.big"}
	for _, id := range ids {
		tr.Merge(id, []string{"shared/x.ini", "shared/" + id + ".ini", "SHARED/X.INI"}, "", PlaceAtRoot, LastWins)
	}

	seen := make(map[string]int)
	tr.Walk(func(p string, b Binding) bool {
		seen[p]++
		assert.NotEmpty(t, b.Archive)
		return true
	})
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s bound more than once", p)
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 4, tr.Len())

	owner, _ := tr.FindOwner("shared/x.ini")
	assert.Equal(t, "a.big", owner)
}

func TestMerge_Placement(t *testing.T) {
	t.Parallel()

	t.Run("under dest", func(t *testing.T) {
		tr := New()
		tr.Merge("music.big", []string{"track01.mp3", `sub\track02.mp3`}, `Data\Audio\`, PlaceUnderDest, LastWins)

		b, ok := tr.Lookup("data/audio/track01.mp3")
		require.True(t, ok)
		assert.Equal(t, "track01.mp3", b.Entry, "entry keeps its archive-relative name")
		_, ok = tr.FindOwner("data/audio/sub/track02.mp3")
		assert.True(t, ok)
		_, ok = tr.FindOwner("track01.mp3")
		assert.False(t, ok)
	})

	t.Run("at root ignores dest", func(t *testing.T) {
		tr := New()
		tr.Merge("music.big", []string{"track01.mp3"}, "Data/Audio", PlaceAtRoot, LastWins)

		_, ok := tr.FindOwner("track01.mp3")
		assert.True(t, ok)
		assert.False(t, tr.HasDir("data"))
	})

	t.Run("under empty dest is root", func(t *testing.T) {
		tr := New()
		tr.Merge("music.big", []string{"track01.mp3"}, "", PlaceUnderDest, LastWins)
		_, ok := tr.FindOwner("track01.mp3")
		assert.True(t, ok)
	})
}

func TestMerge_SkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	tr := New()
	res := tr.Merge("a.big", []string{"", "/", "../escape.txt", "ok.txt"}, "", PlaceAtRoot, LastWins)
	assert.Equal(t, []string{"", "/", "../escape.txt"}, res.Skipped)
	assert.Equal(t, 1, res.Bound)
	assert.False(t, tr.HasDir(".."))
}

func TestFindOwner_CaseInsensitive(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("maps.big", []string{"Data/Maps/Map1.map"}, "", PlaceAtRoot, LastWins)

	a, okA := tr.FindOwner("DATA/Maps/Map1.map")
	b, okB := tr.FindOwner("data/maps/map1.map")
	c, okC := tr.FindOwner(`data\MAPS\map1.MAP`)
	assert.True(t, okA && okB && okC)
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestTree_DirectoriesOnlyExistUnderFiles(t *testing.T) {
	t.Parallel()

	tr := New()
	assert.True(t, tr.HasDir(""), "root always exists")
	assert.False(t, tr.HasDir("ui"))

	tr.Merge("a.big", []string{"ui/icons/a.png"}, "", PlaceAtRoot, LastWins)
	assert.True(t, tr.HasDir("ui"))
	assert.True(t, tr.HasDir("UI/Icons"))
	assert.False(t, tr.HasDir("ui/icons/a.png"))
	assert.False(t, tr.HasDir("ui/sounds"))
}

func TestTree_DirArchive(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("base.big", []string{"ui/icons/a.png", "ui/menu.xml"}, "", PlaceAtRoot, LastWins)
	tr.Merge("patch.big", []string{"ui/menu.xml"}, "", PlaceAtRoot, LastWins)

	id, ok := tr.DirArchive("ui")
	require.True(t, ok)
	assert.Equal(t, "patch.big", id)
	id, _ = tr.DirArchive("ui/icons")
	assert.Equal(t, "base.big", id)
	_, ok = tr.DirArchive("missing")
	assert.False(t, ok)
}

func TestList_Filter(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("audio.big", []string{"/audio/a.wav", "/audio/b.mp3", "/audio/sfx/c.wav"}, "", PlaceAtRoot, LastWins)

	assert.Equal(t, []string{"a.wav"}, tr.List("/audio", "*.wav", false))
	assert.Equal(t, []string{"a.wav", "sfx/c.wav"}, tr.List("/audio", "*.wav", true))
	assert.Equal(t, []string{"a.wav", "sfx/c.wav"}, tr.List("AUDIO", "*.WAV", true))
	assert.Equal(t, []string{"a.wav", "b.mp3", "sfx/c.wav"}, tr.List("audio", "", true))
	assert.Nil(t, tr.List("missing", "*", true))
}

func TestList_OrderIndependentOfMergeOrder(t *testing.T) {
	t.Parallel()

	names := []string{"ui/Zeta.xml", "ui/alpha.xml", "ui/Beta.xml", "ui/sub/gamma.xml", "ui/delta.xml"}
	forward := New()
	forward.Merge("a.big", names, "", PlaceAtRoot, LastWins)

	reversed := New()
	for i := len(names) - 1; i >= 0; i-- {
		reversed.Merge("a.big", names[i:i+1], "", PlaceAtRoot, LastWins)
	}

	want := []string{"alpha.xml", "Beta.xml", "delta.xml", "sub/gamma.xml", "Zeta.xml"}
	assert.Equal(t, want, forward.List("ui", "*", true))
	assert.Equal(t, want, reversed.List("ui", "*", true))
}

func TestList_Scenario(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("base.big", []string{"ui/menu.xml", "ui/icons/a.png"}, "", PlaceAtRoot, LastWins)
	tr.Merge("patch.big", []string{"ui/menu.xml"}, "", PlaceAtRoot, LastWins)

	owner, _ := tr.FindOwner("ui/menu.xml")
	assert.Equal(t, "patch.big", owner)
	owner, _ = tr.FindOwner("ui/icons/a.png")
	assert.Equal(t, "base.big", owner)
	assert.Equal(t, []string{"icons/a.png", "menu.xml"}, tr.List("ui", "*", true))
}

func TestTree_Reset(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("a.big", []string{"ui/menu.xml"}, "", PlaceAtRoot, LastWins)
	tr.Reset()
	assert.Zero(t, tr.Len())
	assert.False(t, tr.HasDir("ui"))
	assert.Empty(t, tr.String())
}

func TestTree_WalkStops(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Merge("a.big", []string{"a", "b", "c"}, "", PlaceAtRoot, LastWins)
	var got []string
	tr.Walk(func(p string, _ Binding) bool {
		got = append(got, p)
		return len(got) < 2
	})
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "root", PlaceAtRoot.String())
	assert.Equal(t, "dest", PlaceUnderDest.String())
	assert.Equal(t, "last-wins", LastWins.String())
	assert.Equal(t, "first-wins", FirstWins.String())
	assert.Equal(t, "unknown", Policy(9).String())
}
