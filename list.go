package archivefs

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/meigma/archivefs/internal/pathutil"
)

// GetFileListFromDir lists the files below subdir whose base name matches
// filter, from both the loose filesystem and the merged archive tree.
//
// Each result is the file's path relative to subdir, prefixed with dirpath.
// A loose file hides an archived file of the same path. Results are unique
// and sorted case-insensitively. Without recurse only subdir's own files are
// listed. A subdir that escapes the root with ".." lists nothing.
func (f *FileSystem) GetFileListFromDir(subdir, dirpath, filter string, recurse bool) []string {
	dir := pathutil.Normalize(subdir)
	if !pathutil.Valid(dir) {
		return nil
	}
	prefix := pathutil.Normalize(dirpath)

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(rel string) {
		key := pathutil.Fold(rel)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, rel)
	}

	for _, rel := range f.listLoose(dir, filter, recurse) {
		add(rel)
	}
	for _, rel := range f.tree.List(dir, filter, recurse) {
		add(rel)
	}

	slices.SortFunc(out, pathutil.Compare)
	if prefix != "" {
		for i, rel := range out {
			out[i] = pathutil.Join(prefix, rel)
		}
	}
	return out
}

// listLoose returns loose files below dir relative to it.
func (f *FileSystem) listLoose(dir, filter string, recurse bool) []string {
	root, info, ok := f.resolveLoose(dir)
	if !ok || !info.IsDir() {
		return nil
	}

	var out []string
	_ = afero.Walk(f.loose, root, func(p string, info os.FileInfo, err error) error { //nolint:errcheck // unreadable subtrees are left out of the listing
		if err != nil {
			if info != nil && info.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			if p != root && !recurse {
				return filepath.SkipDir
			}
			return nil
		}
		if !pathutil.Match(filter, info.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		out = append(out, pathutil.Normalize(filepath.ToSlash(rel)))
		return nil
	})
	return out
}
