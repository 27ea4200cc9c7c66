// Package discover finds source images in a directory.
package discover

import (
	"os"
	"path/filepath"
	"strings"
)

// Extensions lists the source formats picked up by Images.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Images returns the image files directly inside dir, sorted by name.
// Subdirectories are not descended into. Matching is case-insensitive.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
