// Package postprocess runs an optional per-piece step after pieces are
// written, such as recompressing each file with an external tool.
package postprocess

import (
	"context"
	"fmt"
	"sync"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
)

// PiecePostProcessor transforms one written piece file in place.
type PiecePostProcessor interface {
	Name() string
	Process(ctx context.Context, path string) error
}

const (
	KindNone = "none"
	KindExec = "exec"
	KindWasm = "wasm"
)

// Settings selects and tunes the post-processor.
type Settings struct {
	Kind           string   `yaml:"kind"`
	Tool           string   `yaml:"tool"`
	Args           []string `yaml:"args"`
	Workers        int      `yaml:"workers"`
	RemoveOriginal bool     `yaml:"removeOriginal"`
	WasmFile       string   `yaml:"wasmFile"`
}

// Noop leaves pieces untouched.
type Noop struct{}

func (Noop) Name() string                          { return KindNone }
func (Noop) Process(context.Context, string) error { return nil }

// IsNoop reports whether p does nothing, letting callers skip the pass.
func IsNoop(p PiecePostProcessor) bool {
	_, ok := p.(Noop)
	return p == nil || ok
}

// Failure records a piece the post-processor could not handle.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Path, f.Err) }

// Run applies p to every path with at most workers running at once.
// Failures do not stop the remaining paths; they are returned in path order.
func Run(ctx context.Context, p PiecePostProcessor, paths []string, workers int) []Failure {
	if IsNoop(p) || len(paths) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	errs := make([]error, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[idx] = p.Process(ctx, path)
		}(i, path)
	}
	wg.Wait()

	var failures []Failure
	for i, err := range errs {
		if err == nil {
			continue
		}
		logging.Logger().Warn("post-processing failed", "processor", p.Name(), "path", paths[i], "err", err)
		failures = append(failures, Failure{Path: paths[i], Err: err})
	}
	return failures
}
