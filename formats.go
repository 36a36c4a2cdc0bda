package archivefs

import (
	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/archive/big"
	"github.com/meigma/archivefs/archive/generic"
	"github.com/meigma/archivefs/archive/stargz"
	"github.com/meigma/archivefs/archive/zipfmt"
)

// DefaultOpener returns an Opener for every built-in format, tried in the
// order BIG, zip, eStargz, then anything mholt/archives identifies.
// maxEntrySize bounds in-memory decoding of compressed entries; 0 disables
// the bound.
func DefaultOpener(maxEntrySize int64) *archive.Opener {
	return archive.NewOpener(
		big.Format{},
		zipfmt.New(zipfmt.WithMaxEntrySize(maxEntrySize)),
		stargz.New(),
		generic.New(generic.WithMaxEntrySize(maxEntrySize)),
	)
}
