package file

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FindRecentAfter walks dir and returns files modified after startTime,
// sorted by path. Hidden directories are skipped. A zero startTime
// matches every file.
func FindRecentAfter(dir string, startTime time.Time) ([]string, error) {
	var recentFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(startTime) {
			recentFiles = append(recentFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(recentFiles)
	return recentFiles, nil
}
