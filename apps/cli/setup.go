package main

import (
	"context"
	"fmt"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/config"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/pipeline"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess/wasmfilter"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/storage"
)

// CLI flags. Zero values leave the config file or environment in charge.
type CLI struct {
	Source string `arg:"" optional:"" type:"path" help:"Directory containing the source images (default: current directory)."`

	Config      string `short:"c" type:"path" help:"YAML config file."`
	Out         string `short:"o" type:"path" help:"Output directory (default: <source>/GeneratedPuzzles)."`
	Rows        int    `short:"r" help:"Number of rows. Asked for interactively when unset."`
	Cols        int    `short:"k" help:"Number of columns. Asked for interactively when unset."`
	PieceFormat string `help:"Piece image format: png or jpeg."`
	SpecFormat  string `help:"Record format: json or yaml."`
	Workers     int    `short:"w" help:"Crop pieces with this many goroutines."`
	NoClean     bool   `help:"Keep the previous output directory."`

	Tool           string   `help:"External tool run on each piece file, looked up in the source directory and on PATH."`
	ToolArg        []string `help:"Extra argument passed to the tool before the piece file."`
	Wasm           string   `type:"path" help:"WASI filter module run on each piece via WasmEdge."`
	RemoveOriginal bool     `help:"Delete the piece file after the tool succeeds."`
	PostWorkers    int      `help:"Concurrent post-processing runs."`

	Bucket string `help:"Upload to this S3/MinIO bucket instead of writing to disk."`
	Prefix string `help:"Object key prefix inside the bucket."`

	Preview  bool   `help:"Also write <name>-preview.png with the cut lines drawn."`
	Sheet    bool   `help:"Also write <name>-sheet.pdf with the pieces laid out for printing."`
	LogLevel string `help:"debug, info, warn or error."`
}

func (c *CLI) apply(cfg *config.Config) {
	setString(&cfg.SourceDir, c.Source)
	setString(&cfg.OutputDir, c.Out)
	setInt(&cfg.Rows, c.Rows)
	setInt(&cfg.Cols, c.Cols)
	setString(&cfg.PieceFormat, c.PieceFormat)
	setString(&cfg.SpecFormat, c.SpecFormat)
	setInt(&cfg.Workers, c.Workers)
	if c.NoClean {
		cfg.Clean = false
	}

	if c.Tool != "" {
		cfg.PostProcess.Kind = postprocess.KindExec
		cfg.PostProcess.Tool = c.Tool
		cfg.PostProcess.Args = c.ToolArg
	}
	if c.Wasm != "" {
		cfg.PostProcess.Kind = postprocess.KindWasm
		cfg.PostProcess.WasmFile = c.Wasm
	}
	if c.RemoveOriginal {
		cfg.PostProcess.RemoveOriginal = true
	}
	setInt(&cfg.PostProcess.Workers, c.PostWorkers)

	setString(&cfg.S3.Bucket, c.Bucket)
	setString(&cfg.S3.Prefix, c.Prefix)
	cfg.Preview = cfg.Preview || c.Preview
	cfg.Sheet = cfg.Sheet || c.Sheet
	setString(&cfg.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// newGenerator picks the sink and post-processor once for the whole run.
func newGenerator(ctx context.Context, cfg config.Config) (*pipeline.Generator, func(), error) {
	pf, _ := codec.ParsePieceFormat(cfg.PieceFormat)
	sf, _ := codec.ParseSpecFormat(cfg.SpecFormat)
	cleanup := func() {}

	var sink storage.Sink
	if cfg.S3.Enabled() {
		if cfg.PostProcess.Kind != "" && cfg.PostProcess.Kind != postprocess.KindNone {
			return nil, cleanup, fmt.Errorf("post-processing needs local piece files; it cannot be combined with a bucket")
		}
		s3sink, err := storage.NewS3Sink(ctx, cfg.S3, pf, sf)
		if err != nil {
			return nil, cleanup, err
		}
		sink = s3sink
	} else {
		if cfg.Clean {
			if err := storage.Clean(cfg.Output(), cfg.SourceDir); err != nil {
				return nil, cleanup, err
			}
		}
		sink = storage.NewDirSink(cfg.Output(), pf, sf)
	}

	var post postprocess.PiecePostProcessor
	switch cfg.PostProcess.Kind {
	case postprocess.KindWasm:
		p, err := wasmfilter.New(cfg.PostProcess.WasmFile, wasmfilter.DefaultEntry, cfg.PostProcess.Workers)
		if err != nil {
			return nil, cleanup, err
		}
		post, cleanup = p, p.Close
	default:
		p, err := postprocess.Select(cfg.PostProcess, cfg.SourceDir)
		if err != nil {
			return nil, cleanup, err
		}
		if !postprocess.IsNoop(p) {
			fmt.Printf("Detected %s.\n", p.Name())
		}
		post = p
	}

	return &pipeline.Generator{
		Grid:        cfg.Grid(),
		Sink:        sink,
		Post:        post,
		PostWorkers: cfg.PostProcess.Workers,
		Workers:     cfg.Workers,
		Preview:     cfg.Preview,
		Sheet:       cfg.Sheet,
	}, cleanup, nil
}
