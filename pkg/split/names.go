package split

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ImageName derives the puzzle name from a source path: the base name up
// to its first dot, so "photos/cat.small.png" becomes "cat".
func ImageName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// PieceName is the file name of piece p, e.g. "cat-row0-col2.png".
func PieceName(imageName string, p Piece, ext string) string {
	return fmt.Sprintf("%s-row%d-col%d.%s", imageName, p.Row, p.Col, ext)
}

// SpecName is the file name of the puzzle record, e.g. "cat-spec.json".
func SpecName(imageName, ext string) string {
	return fmt.Sprintf("%s-spec.%s", imageName, ext)
}
