package split

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func noise(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for i := range img.Pix {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = byte(seed)
	}
	return img
}

func TestBuild_RoundTrip(t *testing.T) {
	src := noise(37, 23)
	puzzle, pieces, err := Build(src, Grid{Rows: 4, Cols: 5})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if puzzle.SourceWidth != 37 || puzzle.SourceHeight != 23 || puzzle.Rows != 4 || puzzle.Cols != 5 {
		t.Fatalf("puzzle header = %+v", puzzle)
	}

	canvas := imaging.New(37, 23, color.NRGBA{})
	i := 0
	for tile, p := range pieces {
		if p != puzzle.Pieces[i] {
			t.Fatalf("item %d geometry %+v, spec has %+v", i, p, puzzle.Pieces[i])
		}
		if tile.Bounds().Dx() != p.Width || tile.Bounds().Dy() != p.Height {
			t.Fatalf("item %d size %v, want %dx%d", i, tile.Bounds(), p.Width, p.Height)
		}
		canvas = imaging.Paste(canvas, tile, image.Pt(p.X, p.Y))
		i++
	}
	if i != 20 {
		t.Fatalf("sequence yielded %d items, want 20", i)
	}
	if !bytes.Equal(canvas.Pix, src.Pix) {
		t.Error("reassembled image differs from source")
	}
}

func TestBuild_KeepsDeepColor(t *testing.T) {
	src := image.NewNRGBA64(image.Rect(0, 0, 5, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			src.SetNRGBA64(x, y, color.NRGBA64{R: 0x1234 + uint16(x), G: 0xABCD, B: 0x0F0F + uint16(y), A: 0x8001})
		}
	}
	_, pieces, err := Build(src, Grid{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatal(err)
	}
	for tile, p := range pieces {
		got, ok := tile.(*image.NRGBA64)
		if !ok {
			t.Fatalf("piece %+v has type %T, want *image.NRGBA64", p, tile)
		}
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				if got.NRGBA64At(x, y) != src.NRGBA64At(p.X+x, p.Y+y) {
					t.Fatalf("piece %+v pixel (%d,%d) = %v, want %v", p, x, y, got.NRGBA64At(x, y), src.NRGBA64At(p.X+x, p.Y+y))
				}
			}
		}
	}
}

func TestCrop_KeepsRasterType(t *testing.T) {
	gray := image.NewGray16(image.Rect(0, 0, 4, 4))
	gray.SetGray16(3, 2, color.Gray16{Y: 0xBEEF})
	tile, err := Crop(gray, Piece{X: 2, Y: 2, Width: 2, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	g, ok := tile.(*image.Gray16)
	if !ok {
		t.Fatalf("type %T, want *image.Gray16", tile)
	}
	if g.Bounds() != image.Rect(0, 0, 2, 2) || g.Gray16At(1, 0).Y != 0xBEEF {
		t.Errorf("bounds %v, pixel %v", g.Bounds(), g.Gray16At(1, 0))
	}

	sub := noise(6, 6).SubImage(image.Rect(2, 1, 6, 6))
	tile, err = Crop(sub, Piece{X: 1, Y: 1, Width: 2, Height: 3})
	if err != nil {
		t.Fatal(err)
	}
	if tile.At(0, 0) != sub.At(3, 2) || tile.At(1, 2) != sub.At(4, 4) {
		t.Error("sub-image crop read the wrong pixels")
	}

	ycc := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	tile, err = Crop(ycc, Piece{Width: 2, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tile.(*image.NRGBA); !ok {
		t.Errorf("fallback type %T, want *image.NRGBA", tile)
	}
}

func TestBuild_SequenceIsSingleUse(t *testing.T) {
	_, pieces, err := Build(noise(8, 8), Grid{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range pieces {
		n++
	}
	for range pieces {
		n++
	}
	if n != 4 {
		t.Errorf("got %d items across two passes, want 4", n)
	}
}

func TestBuild_NonZeroOrigin(t *testing.T) {
	full := noise(20, 20)
	sub := full.SubImage(image.Rect(5, 5, 15, 15))
	_, pieces, err := Build(sub, Grid{Rows: 2, Cols: 2})
	if err != nil {
		t.Fatal(err)
	}
	for tile, p := range pieces {
		got := tile.At(0, 0)
		want := full.At(5+p.X, 5+p.Y)
		if got != want {
			t.Errorf("piece %d,%d top-left = %v, want %v", p.Row, p.Col, got, want)
		}
	}
}

func TestBuild_PropagatesInvalidGrid(t *testing.T) {
	_, _, err := Build(noise(3, 5), Grid{Rows: 1, Cols: 4})
	var ige *InvalidGridError
	if !errors.As(err, &ige) {
		t.Fatalf("expected *InvalidGridError, got %v", err)
	}
	if ige.Constraint != ConstraintWidth {
		t.Errorf("constraint = %q", ige.Constraint)
	}
}

func TestBuildWith_DimensionMismatch(t *testing.T) {
	_, _, err := BuildWith(noise(10, 10), Dimensions{Width: 12, Height: 10}, Grid{Rows: 2, Cols: 2})
	var cf *CropFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected *CropFailure, got %v", err)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	_, err := Crop(noise(4, 4), Piece{X: 2, Y: 2, Width: 4, Height: 1})
	var cf *CropFailure
	if !errors.As(err, &cf) {
		t.Fatalf("expected *CropFailure, got %v", err)
	}
}

func TestCropAll_PreservesOrder(t *testing.T) {
	src := noise(50, 30)
	pieces, err := Partition(Dimensions{50, 30}, Grid{Rows: 3, Cols: 7})
	if err != nil {
		t.Fatal(err)
	}
	tiles, err := CropAll(context.Background(), src, pieces, 4)
	if err != nil {
		t.Fatalf("CropAll: %v", err)
	}
	for i, p := range pieces {
		want, _ := Crop(src, p)
		if !bytes.Equal(tiles[i].(*image.NRGBA).Pix, want.(*image.NRGBA).Pix) {
			t.Errorf("tile %d does not match piece %+v", i, p)
		}
	}
}

func TestCropAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pieces, _ := Partition(Dimensions{10, 10}, Grid{Rows: 5, Cols: 5})
	if _, err := CropAll(ctx, noise(10, 10), pieces, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNames(t *testing.T) {
	if got := ImageName("/tmp/in/cat.small.png"); got != "cat" {
		t.Errorf("ImageName = %q", got)
	}
	if got := ImageName("noext"); got != "noext" {
		t.Errorf("ImageName = %q", got)
	}
	if got := PieceName("cat", Piece{Row: 1, Col: 3}, "png"); got != "cat-row1-col3.png" {
		t.Errorf("PieceName = %q", got)
	}
	if got := SpecName("cat", "json"); got != "cat-spec.json" {
		t.Errorf("SpecName = %q", got)
	}
}
