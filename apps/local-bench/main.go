// local-bench times puzzle generation and the WasmEdge piece filter on
// every PNG in $SHARED_DIR/input.
package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/discover"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/pipeline"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess/wasmfilter"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/storage"
)

var (
	tileSize   = getEnvInt("TILE_SIZE", 256)
	sharedDir  = getEnv("SHARED_DIR", "../../shared")
	inputDir   = filepath.Join(sharedDir, "input")
	outputDir  = filepath.Join(sharedDir, "output")
	wasmFilter = filepath.Join(sharedDir, "filter.wasm")
	maxWorkers = getEnvInt("MAX_WORKERS", 8)
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func checkErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

// gridFor picks a grid whose pieces are at most size pixels on a side.
func gridFor(b image.Rectangle, size int) split.Grid {
	if size < 1 {
		size = 1
	}
	return split.Grid{
		Rows: (b.Dy() + size - 1) / size,
		Cols: (b.Dx() + size - 1) / size,
	}
}

func main() {
	logger, err := logging.New(os.Stderr, getEnv("LOG_LEVEL", "warn"))
	checkErr(err)
	logging.SetLogger(logger)

	checkErr(storage.Clean(outputDir))
	checkErr(os.MkdirAll(outputDir, 0o755))

	inputs, err := discover.Images(inputDir)
	checkErr(err)
	if len(inputs) == 0 {
		fmt.Printf("No images in %s\n", inputDir)
		return
	}

	// VM pool is created once and shared by every image
	filter, err := wasmfilter.New(wasmFilter, wasmfilter.DefaultEntry, maxWorkers)
	checkErr(err)
	defer filter.Close()

	fmt.Printf("Found %d images, processing with %d workers\n", len(inputs), maxWorkers)

	ctx := context.Background()
	for _, file := range inputs {
		processImage(ctx, file, filter)
	}
	fmt.Println("Done")
}

func processImage(ctx context.Context, file string, filter postprocess.PiecePostProcessor) {
	fmt.Printf("→ %s\n", file)
	src, err := codec.DecodeImage(file)
	checkErr(err)

	gen := &pipeline.Generator{
		Grid:    gridFor(src.Bounds(), tileSize),
		Sink:    storage.NewDirSink(outputDir, codec.PNG, codec.JSON),
		Workers: maxWorkers,
	}

	start := time.Now()
	res, err := gen.Build(ctx, split.ImageName(file), src)
	checkErr(err)
	cut := time.Since(start)

	start = time.Now()
	failures := postprocess.Run(ctx, filter, res.Pieces, maxWorkers)
	filtered := time.Since(start)

	fmt.Printf("  %dx%d grid, %d pieces: cut %v, filter %v, %d failed\n",
		res.Puzzle.Rows, res.Puzzle.Cols, len(res.Pieces), cut, filtered, len(failures))
}
