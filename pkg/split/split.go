// Package split cuts a raster image into a grid of rectangular pieces and
// describes how they reassemble.
package split

import (
	"image"
	"iter"
	"sync/atomic"
)

// Puzzle describes how the pieces reassemble into the source image.
// Pieces are in row-major order.
type Puzzle struct {
	SourceWidth  int     `json:"sourceWidth" yaml:"sourceWidth"`
	SourceHeight int     `json:"sourceHeight" yaml:"sourceHeight"`
	Rows         int     `json:"rows" yaml:"rows"`
	Cols         int     `json:"cols" yaml:"cols"`
	Pieces       []Piece `json:"pieces" yaml:"pieces"`
}

// Dimensions returns the source image extent.
func (p *Puzzle) Dimensions() Dimensions {
	return Dimensions{Width: p.SourceWidth, Height: p.SourceHeight}
}

// Grid returns the partition the puzzle was built with.
func (p *Puzzle) Grid() Grid {
	return Grid{Rows: p.Rows, Cols: p.Cols}
}

// Build partitions img on grid g. It returns the puzzle record and a
// single-use sequence of cropped pieces in the same order as
// Puzzle.Pieces. Ranging over the sequence a second time yields nothing.
func Build(img image.Image, g Grid) (*Puzzle, iter.Seq2[image.Image, Piece], error) {
	b := img.Bounds()
	return BuildWith(img, Dimensions{Width: b.Dx(), Height: b.Dy()}, g)
}

// BuildWith is Build with caller-supplied dimensions, which must match the
// raster's bounds.
func BuildWith(img image.Image, d Dimensions, g Grid) (*Puzzle, iter.Seq2[image.Image, Piece], error) {
	pieces, err := Partition(d, g)
	if err != nil {
		return nil, nil, err
	}
	b := img.Bounds()
	if b.Dx() != d.Width || b.Dy() != d.Height {
		return nil, nil, &CropFailure{
			Rect:   image.Rect(0, 0, d.Width, d.Height).Add(b.Min),
			Bounds: b,
		}
	}

	puzzle := &Puzzle{
		SourceWidth:  d.Width,
		SourceHeight: d.Height,
		Rows:         g.Rows,
		Cols:         g.Cols,
		Pieces:       pieces,
	}

	var used atomic.Bool
	seq := func(yield func(image.Image, Piece) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		for _, p := range pieces {
			tile, err := Crop(img, p)
			if err != nil {
				// geometry was validated against the bounds above
				panic(err)
			}
			if !yield(tile, p) {
				return
			}
		}
	}
	return puzzle, seq, nil
}
