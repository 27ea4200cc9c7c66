package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestPreview_DrawsCutLines(t *testing.T) {
	src := solid(90, 60, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	puzzle, _, err := split.Build(src, split.Grid{Rows: 2, Cols: 3})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Preview(src, puzzle)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if out.Bounds().Dx() != 90 || out.Bounds().Dy() != 60 {
		t.Fatalf("bounds = %v", out.Bounds())
	}

	changed := 0
	for y := 0; y < 60; y++ {
		r, g, b, _ := out.At(30, y).RGBA()
		if r != g || g != b {
			changed++
		}
	}
	if changed == 0 {
		t.Error("no cut line drawn at x=30")
	}

	r, g, b, _ := out.At(15, 15).RGBA()
	if r != g || g != b {
		t.Error("piece interior should be untouched")
	}
}

func TestPreview_SizeMismatch(t *testing.T) {
	puzzle := &split.Puzzle{SourceWidth: 10, SourceHeight: 10, Rows: 1, Cols: 1}
	if _, err := Preview(solid(5, 5, color.NRGBA{A: 255}), puzzle); err == nil {
		t.Error("expected error")
	}
}

func TestSheet(t *testing.T) {
	src := solid(40, 30, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	puzzle, _, err := split.Build(src, split.Grid{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatal(err)
	}
	pieces, err := split.CropAll(context.Background(), src, puzzle.Pieces, 2)
	if err != nil {
		t.Fatal(err)
	}

	pdf, err := Sheet("cat", puzzle, pieces)
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
	if len(pdf) < 500 {
		t.Errorf("PDF too short: %d bytes", len(pdf))
	}
}

func TestSheet_PieceCountMismatch(t *testing.T) {
	puzzle := &split.Puzzle{SourceWidth: 2, SourceHeight: 2, Rows: 1, Cols: 2, Pieces: make([]split.Piece, 2)}
	if _, err := Sheet("x", puzzle, nil); err == nil {
		t.Error("expected error")
	}
}
