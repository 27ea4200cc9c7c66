// Package render draws human-facing views of a puzzle: a cut-line preview
// over the source image and a printable PDF sheet of the pieces.
package render

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

// Preview returns a copy of img with dashed lines along every piece
// boundary of puzzle.
func Preview(img image.Image, puzzle *split.Puzzle) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() != puzzle.SourceWidth || b.Dy() != puzzle.SourceHeight {
		return nil, fmt.Errorf("preview: image is %dx%d, puzzle is %dx%d",
			b.Dx(), b.Dy(), puzzle.SourceWidth, puzzle.SourceHeight)
	}

	dc := gg.NewContextForImage(img)
	defer dc.Close()

	w, h := float64(b.Dx()), float64(b.Dy())
	dc.SetRGBA(1, 0.1, 0.1, 0.85)
	dc.SetLineWidth(max(1, min(w, h)/300))
	dc.SetDash(6, 4)

	for _, x := range cuts(puzzle, func(p split.Piece) (int, bool) { return p.X, p.Row == 0 }) {
		dc.DrawLine(float64(x), 0, float64(x), h)
	}
	for _, y := range cuts(puzzle, func(p split.Piece) (int, bool) { return p.Y, p.Col == 0 }) {
		dc.DrawLine(0, float64(y), w, float64(y))
	}
	if err := dc.Stroke(); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return dc.Image(), nil
}

// cuts returns the interior boundary offsets picked by sel, in order.
func cuts(puzzle *split.Puzzle, sel func(split.Piece) (int, bool)) []int {
	var out []int
	for _, p := range puzzle.Pieces {
		if off, ok := sel(p); ok && off > 0 {
			out = append(out, off)
		}
	}
	return out
}
