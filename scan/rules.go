package scan

import (
	"path/filepath"
	"strings"
)

// IsEPUB reports whether path has an .epub extension, in any case.
func IsEPUB(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".epub")
}

// HasGlobMeta reports whether arg contains glob syntax.
func HasGlobMeta(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// Key normalizes path for duplicate detection: "./a.epub", "a.epub" and the
// absolute form are the same file.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
