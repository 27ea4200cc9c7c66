package split

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
)

// Rect returns the piece rectangle in the coordinate space of bounds.
func (p Piece) Rect(bounds image.Rectangle) image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+p.Width, p.Y+p.Height).Add(bounds.Min)
}

// Crop copies the pixels of piece p out of img. The result has its origin
// at (0, 0). Rasters from the image package keep their concrete type and
// their pixel bytes; anything else goes through imaging.Crop.
func Crop(img image.Image, p Piece) (image.Image, error) {
	b := img.Bounds()
	r := p.Rect(b)
	if r.Empty() || !r.In(b) {
		return nil, &CropFailure{Rect: r, Bounds: b}
	}
	if out, ok := clone(img, r); ok {
		return out, nil
	}
	return imaging.Crop(img, r), nil
}

// clone copies r out of img into a new raster of the same type.
func clone(img image.Image, r image.Rectangle) (image.Image, bool) {
	dst := image.Rect(0, 0, r.Dx(), r.Dy())
	w, h := r.Dx(), r.Dy()
	switch src := img.(type) {
	case *image.NRGBA:
		out := image.NewNRGBA(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*4, h)
		return out, true
	case *image.RGBA:
		out := image.NewRGBA(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*4, h)
		return out, true
	case *image.NRGBA64:
		out := image.NewNRGBA64(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*8, h)
		return out, true
	case *image.RGBA64:
		out := image.NewRGBA64(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*8, h)
		return out, true
	case *image.Gray:
		out := image.NewGray(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w, h)
		return out, true
	case *image.Gray16:
		out := image.NewGray16(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*2, h)
		return out, true
	case *image.Alpha:
		out := image.NewAlpha(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w, h)
		return out, true
	case *image.Alpha16:
		out := image.NewAlpha16(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*2, h)
		return out, true
	case *image.CMYK:
		out := image.NewCMYK(dst)
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w*4, h)
		return out, true
	case *image.Paletted:
		out := image.NewPaletted(dst, append(color.Palette(nil), src.Palette...))
		copyRows(out.Pix, out.Stride, src.Pix[src.PixOffset(r.Min.X, r.Min.Y):], src.Stride, w, h)
		return out, true
	}
	return nil, false
}

func copyRows(dst []byte, dstStride int, src []byte, srcStride, rowBytes, rows int) {
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+rowBytes], src[y*srcStride:y*srcStride+rowBytes])
	}
}

// CropAll crops every piece using up to workers goroutines. The returned
// slice is indexed like pieces regardless of completion order.
func CropAll(ctx context.Context, img image.Image, pieces []Piece, workers int) ([]image.Image, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(pieces) {
		workers = len(pieces)
	}

	type task struct {
		idx   int
		piece Piece
	}

	tasks := make(chan task)
	out := make([]image.Image, len(pieces))
	errs := make([]error, len(pieces))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				out[t.idx], errs[t.idx] = Crop(img, t.piece)
			}
		}()
	}

	var ctxErr error
dispatch:
	for i, p := range pieces {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case tasks <- task{i, p}:
		}
	}
	close(tasks)
	wg.Wait()

	if ctxErr != nil {
		return nil, ctxErr
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
