package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/ui/menu.xml", "ui/menu.xml"},
		{"trailing slash", "ui/icons/", "ui/icons"},
		{"backslashes", `Data\Maps\Map1.map`, "Data/Maps/Map1.map"},
		{"mixed separators", `data/maps\map1.map`, "data/maps/map1.map"},
		{"empty string", "", ""},
		{"root slash", "/", ""},
		{"root backslash", `\`, ""},
		{"dot", ".", ""},
		{"simple", "foo", "foo"},
		{"internal double slashes", "ui//icons///a.png", "ui/icons/a.png"},
		{"dot segments", "./ui/./menu.xml", "ui/menu.xml"},
		{"trailing dot", "ui/.", "ui"},
		{"dotdot preserved", "a/../b", "a/../b"},
		{"dotdot only", "..", ".."},
		{"dot suffix in name", "x./y", "x./y"},
		{"case preserved", "UI/Menu.XML", "UI/Menu.XML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid("ui/menu.xml"))
	assert.True(t, Valid("ui/..menu"))
	assert.False(t, Valid(".."))
	assert.False(t, Valid("a/../b"))
}

func TestSplitJoin(t *testing.T) {
	assert.Nil(t, Split(""))
	assert.Equal(t, []string{"ui", "icons", "a.png"}, Split("ui/icons/a.png"))
	assert.Equal(t, "ui/icons/a.png", Join("ui", "", "icons", "a.png"))
	assert.Equal(t, "", Join("", ""))
}

func TestBaseDir(t *testing.T) {
	tests := []struct {
		in, base, dir string
	}{
		{"", "", ""},
		{"menu.xml", "menu.xml", ""},
		{"ui/menu.xml", "menu.xml", "ui"},
		{"ui/icons/a.png", "a.png", "ui/icons"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.base, Base(tt.in))
			assert.Equal(t, tt.dir, Dir(tt.in))
		})
	}
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare("a.wav", "B.wav"))
	assert.Positive(t, Compare("b.wav", "A.wav"))
	assert.Zero(t, Compare("a.wav", "a.wav"))
	// Same fold, tie broken by byte order so the ordering is total.
	assert.Negative(t, Compare("A.wav", "a.wav"))
}

func TestKeyAndEqualFold(t *testing.T) {
	assert.Equal(t, "data/maps/map1.map", Key(`/DATA\Maps\Map1.map`))
	assert.True(t, EqualFold("DATA/Maps/Map1.map", `data\maps\map1.map`))
	assert.False(t, EqualFold("data/maps/map1.map", "data/maps/map2.map"))
}
