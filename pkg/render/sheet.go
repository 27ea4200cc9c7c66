package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

const (
	sheetMargin = 36.0
	sheetGap    = 8.0
	titleSize   = 14
	labelSize   = 6
	labelHeight = 8.0
)

// Sheet lays the pieces out as an exploded grid on one page, each labeled
// with its row and column, and returns the PDF bytes. pieces must be in
// puzzle order.
func Sheet(title string, puzzle *split.Puzzle, pieces []image.Image) ([]byte, error) {
	if len(pieces) != len(puzzle.Pieces) {
		return nil, fmt.Errorf("sheet: %d images for %d pieces", len(pieces), len(puzzle.Pieces))
	}

	orientation := "P"
	if puzzle.SourceWidth > puzzle.SourceHeight {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "pt", "A4", "")
	pdf.SetMargins(sheetMargin, sheetMargin, sheetMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetXY(sheetMargin, sheetMargin)
	pdf.CellFormat(pageW-2*sheetMargin, 16, title, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", labelSize)
	pdf.SetXY(sheetMargin, sheetMargin+16)
	pdf.CellFormat(pageW-2*sheetMargin, 10,
		fmt.Sprintf("%dx%d px, %d rows x %d cols", puzzle.SourceWidth, puzzle.SourceHeight, puzzle.Rows, puzzle.Cols),
		"", 0, "L", false, 0, "")

	top := sheetMargin + 32
	availW := pageW - 2*sheetMargin - float64(puzzle.Cols-1)*sheetGap
	availH := pageH - top - sheetMargin - float64(puzzle.Rows)*(sheetGap+labelHeight)
	scale := min(availW/float64(puzzle.SourceWidth), availH/float64(puzzle.SourceHeight))

	pdf.SetDrawColor(120, 120, 120)
	pdf.SetLineWidth(0.3)
	for i, p := range puzzle.Pieces {
		var buf bytes.Buffer
		if err := codec.EncodePiece(&buf, pieces[i], codec.PNG); err != nil {
			return nil, fmt.Errorf("sheet: piece %d,%d: %w", p.Row, p.Col, err)
		}
		name := fmt.Sprintf("r%dc%d", p.Row, p.Col)
		opt := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opt, &buf)

		x := sheetMargin + float64(p.X)*scale + float64(p.Col)*sheetGap
		y := top + float64(p.Y)*scale + float64(p.Row)*(sheetGap+labelHeight)
		w, h := float64(p.Width)*scale, float64(p.Height)*scale
		pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
		pdf.Rect(x, y, w, h, "D")

		pdf.SetXY(x, y+h)
		pdf.CellFormat(w, labelHeight, fmt.Sprintf("row %d col %d", p.Row, p.Col), "", 0, "C", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
