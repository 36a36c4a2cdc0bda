package archive

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestIndex_Lookup(t *testing.T) {
	t.Parallel()

	idx := NewIndex([]Entry{
		{Name: `Data\INI\Weapon.ini`, Size: 10},
		{Name: "ui/menu.xml", Size: 20},
		{Name: "/ui/icons/a.png", Size: 30},
	})
	require.Equal(t, 3, idx.Len())

	tests := []struct {
		name    string
		wantPos int
		wantOK  bool
	}{
		{"data/ini/weapon.ini", 0, true},
		{`DATA\INI\WEAPON.INI`, 0, true},
		{"UI/Menu.XML", 1, true},
		{"ui/icons/a.png", 2, true},
		{"ui/icons", 0, false},
		{"missing.txt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, pos, ok := idx.Lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantPos, pos)
			}
		})
	}

	e, _, ok := idx.Lookup("data/ini/weapon.ini")
	require.True(t, ok)
	assert.Equal(t, "Data/INI/Weapon.ini", e.Name, "names are normalized but keep their case")
}

func TestIndex_DuplicateFoldLastWins(t *testing.T) {
	t.Parallel()

	idx := NewIndex([]Entry{
		{Name: "a.txt", Size: 1},
		{Name: "A.TXT", Size: 2},
	})
	assert.Equal(t, 1, idx.Len())
	e, pos, ok := idx.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, int64(2), e.Size)
	assert.Equal(t, 1, pos)
}

func TestIndex_SkipsRootEntries(t *testing.T) {
	t.Parallel()

	idx := NewIndex([]Entry{{Name: "/"}, {Name: ""}, {Name: "x"}})
	assert.Equal(t, []string{"x"}, entryNames(idx.Entries()))
}

func TestIndex_WithPrefix(t *testing.T) {
	t.Parallel()

	idx := NewIndex([]Entry{
		{Name: "audio/a.wav"},
		{Name: "Audio/SFX/c.wav"},
		{Name: "audio.txt"},
		{Name: "audiobook/x.mp3"},
		{Name: "ui/menu.xml"},
	})

	got := entryNames(slices.Collect(idx.WithPrefix("AUDIO")))
	assert.Equal(t, []string{"audio/a.wav", "Audio/SFX/c.wav"}, got)

	all := entryNames(slices.Collect(idx.WithPrefix("")))
	assert.Len(t, all, 5)
}
