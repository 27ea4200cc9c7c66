// Package pipeline turns source images into puzzles: decode, partition,
// persist pieces and record, then run the optional post-processor.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/render"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/storage"
)

// Generator builds one puzzle per source image.
type Generator struct {
	Grid split.Grid
	Sink storage.Sink
	// Post runs on each stored piece location; nil means no post-processing.
	Post        postprocess.PiecePostProcessor
	PostWorkers int
	// Workers > 1 crops pieces in parallel before storing them in order.
	Workers int
	Preview bool
	Sheet   bool
}

// Result describes one generated puzzle.
type Result struct {
	Source   string
	Name     string
	Puzzle   *split.Puzzle
	Spec     string
	Pieces   []string
	Extras   []string
	Failures []postprocess.Failure
}

// ImageFailure is a source image that could not be turned into a puzzle.
type ImageFailure struct {
	Source string
	Err    error
}

// Report summarizes a batch.
type Report struct {
	Results []Result
	Failed  []ImageFailure
}

// PostFailures counts post-processing failures across the batch.
func (r Report) PostFailures() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Failures)
	}
	return n
}

// Run processes every source in order. A failing image is recorded and the
// batch continues with the next one.
func (g *Generator) Run(ctx context.Context, sources []string) Report {
	var rep Report
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			rep.Failed = append(rep.Failed, ImageFailure{Source: src, Err: err})
			continue
		}
		res, err := g.Image(ctx, src)
		if err != nil {
			logging.Logger().Error("skipping image", "source", src, "err", err)
			rep.Failed = append(rep.Failed, ImageFailure{Source: src, Err: err})
			continue
		}
		rep.Results = append(rep.Results, *res)
	}
	return rep
}

// Image builds the puzzle for a single source file.
func (g *Generator) Image(ctx context.Context, src string) (*Result, error) {
	img, err := codec.DecodeImage(src)
	if err != nil {
		return nil, err
	}
	name := split.ImageName(src)
	logging.Logger().Info("generating", "image", name)
	res, err := g.Build(ctx, name, img)
	if err != nil {
		return nil, err
	}
	res.Source = src
	return res, nil
}

// Build builds and stores the puzzle for an already decoded image.
func (g *Generator) Build(ctx context.Context, name string, img image.Image) (*Result, error) {
	puzzle, seq, err := split.Build(img, g.Grid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	res := &Result{Name: name, Puzzle: puzzle}
	if err := g.Sink.Begin(ctx, name); err != nil {
		return nil, err
	}
	if res.Spec, err = g.Sink.PutSpec(ctx, name, puzzle); err != nil {
		return nil, err
	}

	var tiles []image.Image
	if g.Workers > 1 {
		if tiles, err = split.CropAll(ctx, img, puzzle.Pieces, g.Workers); err != nil {
			return nil, err
		}
		for i, p := range puzzle.Pieces {
			if err := g.put(ctx, res, p, tiles[i]); err != nil {
				return nil, err
			}
		}
	} else {
		for tile, p := range seq {
			if err := g.put(ctx, res, p, tile); err != nil {
				return nil, err
			}
			if g.Sheet {
				tiles = append(tiles, tile)
			}
		}
	}

	if g.Preview {
		if err := g.preview(ctx, res, img); err != nil {
			return nil, err
		}
	}
	if g.Sheet {
		if err := g.sheet(ctx, res, tiles); err != nil {
			return nil, err
		}
	}

	if g.Post != nil && !postprocess.IsNoop(g.Post) {
		res.Failures = postprocess.Run(ctx, g.Post, res.Pieces, g.PostWorkers)
	}
	logging.Logger().Info("generated", "image", name, "pieces", len(res.Pieces), "postFailures", len(res.Failures))
	return res, nil
}

func (g *Generator) put(ctx context.Context, res *Result, p split.Piece, tile image.Image) error {
	loc, err := g.Sink.PutPiece(ctx, res.Name, p, tile)
	if err != nil {
		return err
	}
	res.Pieces = append(res.Pieces, loc)
	return nil
}

func (g *Generator) preview(ctx context.Context, res *Result, img image.Image) error {
	out, err := render.Preview(img, res.Puzzle)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := codec.EncodePiece(&buf, out, codec.PNG); err != nil {
		return err
	}
	loc, err := g.Sink.PutFile(ctx, res.Name, res.Name+"-preview.png", codec.PNG.ContentType(), buf.Bytes())
	if err != nil {
		return err
	}
	res.Extras = append(res.Extras, loc)
	return nil
}

func (g *Generator) sheet(ctx context.Context, res *Result, tiles []image.Image) error {
	pdf, err := render.Sheet(res.Name, res.Puzzle, tiles)
	if err != nil {
		return err
	}
	loc, err := g.Sink.PutFile(ctx, res.Name, res.Name+"-sheet.pdf", "application/pdf", pdf)
	if err != nil {
		return err
	}
	res.Extras = append(res.Extras, loc)
	return nil
}
