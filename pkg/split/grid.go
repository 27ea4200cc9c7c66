package split

// Dimensions is the pixel extent of a source image.
type Dimensions struct {
	Width  int
	Height int
}

// Grid is the rows×cols partition chosen by the user.
type Grid struct {
	Rows int
	Cols int
}

// Piece is the geometry of one cell of the grid, relative to the
// top-left corner of the source image.
type Piece struct {
	Row    int `json:"row" yaml:"row"`
	Col    int `json:"col" yaml:"col"`
	X      int `json:"originX" yaml:"originX"`
	Y      int `json:"originY" yaml:"originY"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Span is one slot of a one-dimensional partition.
type Span struct {
	Offset int
	Size   int
}

// Axis splits total into parts spans. The first total%parts spans are one
// pixel larger than the rest, and offsets are the running sum of sizes.
// The caller guarantees 1 <= parts <= total.
func Axis(total, parts int) []Span {
	base, rem := total/parts, total%parts
	spans := make([]Span, parts)
	off := 0
	for i := range spans {
		size := base
		if i < rem {
			size++
		}
		spans[i] = Span{Offset: off, Size: size}
		off += size
	}
	return spans
}

// Validate reports whether g can partition d into non-empty pieces.
func (g Grid) Validate(d Dimensions) error {
	switch {
	case g.Rows < 1:
		return newInvalidGrid(ConstraintRows, d, g)
	case g.Cols < 1:
		return newInvalidGrid(ConstraintCols, d, g)
	case d.Width < g.Cols:
		return newInvalidGrid(ConstraintWidth, d, g)
	case d.Height < g.Rows:
		return newInvalidGrid(ConstraintHeight, d, g)
	}
	return nil
}

// Partition computes the pieces of d for grid g in row-major order.
// The pieces tile d exactly and sizes within a row or column differ by at
// most one pixel, with the lowest indices absorbing the remainder.
func Partition(d Dimensions, g Grid) ([]Piece, error) {
	if err := g.Validate(d); err != nil {
		return nil, err
	}
	cols := Axis(d.Width, g.Cols)
	rows := Axis(d.Height, g.Rows)

	pieces := make([]Piece, 0, g.Rows*g.Cols)
	for r, rs := range rows {
		for c, cs := range cols {
			pieces = append(pieces, Piece{
				Row:    r,
				Col:    c,
				X:      cs.Offset,
				Y:      rs.Offset,
				Width:  cs.Size,
				Height: rs.Size,
			})
		}
	}
	return pieces, nil
}
