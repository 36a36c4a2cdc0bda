// Package archive defines the ArchiveFile capability consumed by archivefs
// and the format dispatch used to open concrete containers.
//
// A container format implements [Format]. An [Opener] holds an ordered list of
// formats, sniffs the first bytes of a source and hands it to the first format
// that recognises it. Every opened container is exposed as an [ArchiveFile]:
// a read-only, case-insensitive view over its entries.
//
// Concrete formats live in subpackages:
//   - big: BIGF/BIG4 containers
//   - zipfmt: zip archives, including zstd entries
//   - stargz: eStargz blobs
//   - generic: anything github.com/mholt/archives can identify
package archive
