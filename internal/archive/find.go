package archive

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// FindFiles walks root and returns the sorted paths of regular files for
// which match returns true. A missing root yields no results.
func FindFiles(root string, match func(path string) bool) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return err
		}
		if d.Type().IsRegular() && match(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(found)
	return found, nil
}
