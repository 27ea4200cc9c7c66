package split

import (
	"errors"
	"fmt"
	"image"
)

// Constraint names the grid precondition an InvalidGridError violated.
type Constraint string

const (
	ConstraintRows   Constraint = "rows"
	ConstraintCols   Constraint = "cols"
	ConstraintWidth  Constraint = "width"
	ConstraintHeight Constraint = "height"
)

// ErrInvalidGrid is matched by every *InvalidGridError via errors.Is.
var ErrInvalidGrid = errors.New("invalid grid")

// InvalidGridError is returned when a grid cannot partition an image into
// non-empty pieces.
type InvalidGridError struct {
	Constraint Constraint
	Dimensions Dimensions
	Grid       Grid
}

func newInvalidGrid(c Constraint, d Dimensions, g Grid) *InvalidGridError {
	return &InvalidGridError{Constraint: c, Dimensions: d, Grid: g}
}

func (e *InvalidGridError) Error() string {
	switch e.Constraint {
	case ConstraintRows:
		return fmt.Sprintf("invalid grid: rows must be >= 1, got %d", e.Grid.Rows)
	case ConstraintCols:
		return fmt.Sprintf("invalid grid: cols must be >= 1, got %d", e.Grid.Cols)
	case ConstraintWidth:
		return fmt.Sprintf("invalid grid: width %d is smaller than %d cols", e.Dimensions.Width, e.Grid.Cols)
	default:
		return fmt.Sprintf("invalid grid: height %d is smaller than %d rows", e.Dimensions.Height, e.Grid.Rows)
	}
}

func (e *InvalidGridError) Is(target error) bool { return target == ErrInvalidGrid }

// CropFailure means a requested rectangle could not be extracted from the
// source raster. With validated geometry this indicates a bug.
type CropFailure struct {
	Rect   image.Rectangle
	Bounds image.Rectangle
}

func (e *CropFailure) Error() string {
	return fmt.Sprintf("crop %v outside source bounds %v", e.Rect, e.Bounds)
}
