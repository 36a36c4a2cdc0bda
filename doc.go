// Package archivefs provides a virtual filesystem over packed game archives
// and the loose filesystem.
//
// Archives (BIG, zip, eStargz and anything mholt/archives recognises) are
// merged into one case-insensitive logical namespace. When two archives
// provide the same path the most recently loaded one wins by default. Loose
// files always shadow archived ones when opening, checking existence or
// listing.
//
// # Quick Start
//
// Load every BIG file next to the game and read a file from the merged view:
//
//	fsys := archivefs.New(archivefs.WithLooseFS(afero.NewBasePathFs(afero.NewOsFs(), gameDir)))
//	defer fsys.Close()
//
//	report, err := fsys.LoadArchivesFromDir(ctx, ".", "*.big", false)
//	if err != nil {
//	    return err
//	}
//	if report.Failed != nil {
//	    log.Printf("some archives were skipped: %v", report.Failed)
//	}
//
//	f, err := fsys.OpenFile(`Data\INI\Weapon.ini`, archivefs.ModeRead|archivefs.ModeBinary)
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
// # Ownership
//
// [FileSystem.GetArchiveFilenameForFile] reports which archive owns a path
// even when a loose file shadows it. Closing an archive rebuilds the merged
// tree from the remaining archives in load order.
//
// The package implements fs.FS, fs.StatFS and fs.ReadFileFS for read access
// through the standard library.
package archivefs
