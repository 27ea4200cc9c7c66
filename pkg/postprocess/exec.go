package postprocess

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
)

// Exec runs Tool with Args followed by the piece path, from the piece's
// directory. The tool is expected to rewrite the piece in place, or to
// write a sibling file when RemoveOriginal is set.
type Exec struct {
	Tool           string
	Args           []string
	RemoveOriginal bool
}

func (e *Exec) Name() string { return filepath.Base(e.Tool) }

func (e *Exec) Process(ctx context.Context, path string) error {
	args := append(append([]string{}, e.Args...), filepath.Base(path))
	cmd := exec.CommandContext(ctx, e.Tool, args...)
	cmd.Dir = filepath.Dir(path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w, output: %s", e.Name(), err, string(out))
	}
	if e.RemoveOriginal {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove original: %w", err)
		}
	}
	return nil
}

// Detect looks for tool first as a file inside dir and then on PATH. It
// returns the absolute path of the tool when found.
func Detect(dir, tool string) (string, bool) {
	if tool == "" {
		return "", false
	}
	if dir != "" && filepath.Base(tool) == tool {
		candidate := filepath.Join(dir, tool)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs, true
			}
			return candidate, true
		}
	}
	if p, err := exec.LookPath(tool); err == nil {
		// Exec runs from the piece directory, so a relative path would move.
		if abs, err := filepath.Abs(p); err == nil {
			return abs, true
		}
		return p, true
	}
	return "", false
}

// Select picks the none or exec post-processor once at startup. An exec
// tool that cannot be found falls back to Noop, leaving output unchanged.
// Other kinds are built by their own packages.
func Select(s Settings, sourceDir string) (PiecePostProcessor, error) {
	switch s.Kind {
	case "", KindNone:
		return Noop{}, nil
	case KindExec:
		path, ok := Detect(sourceDir, s.Tool)
		if !ok {
			logging.Logger().Warn("post-processing tool not found, skipping", "tool", s.Tool)
			return Noop{}, nil
		}
		logging.Logger().Info("detected post-processing tool", "tool", path)
		return &Exec{Tool: path, Args: s.Args, RemoveOriginal: s.RemoveOriginal}, nil
	}
	return nil, fmt.Errorf("unsupported post-processor kind %q", s.Kind)
}
