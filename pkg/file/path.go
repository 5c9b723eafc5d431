package file

import (
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the extension of path for ext. An empty ext strips
// the extension; a missing leading dot is added. Dotfiles keep their
// name untouched.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}

	return filepath.Join(dir, filename[:lastDot]+ext)
}
