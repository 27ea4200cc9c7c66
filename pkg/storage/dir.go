package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

// DirSink writes each puzzle into Root/<imageName>/.
type DirSink struct {
	Root        string
	PieceFormat codec.PieceFormat
	SpecFormat  codec.SpecFormat
}

// NewDirSink returns a sink rooted at root with png pieces and json records
// unless the formats are overridden.
func NewDirSink(root string, pf codec.PieceFormat, sf codec.SpecFormat) *DirSink {
	if pf == "" {
		pf = codec.PNG
	}
	if sf == "" {
		sf = codec.JSON
	}
	return &DirSink{Root: root, PieceFormat: pf, SpecFormat: sf}
}

// Dir is the output directory for imageName.
func (s *DirSink) Dir(imageName string) string {
	return filepath.Join(s.Root, imageName)
}

func (s *DirSink) Begin(_ context.Context, imageName string) error {
	return os.MkdirAll(s.Dir(imageName), 0o755)
}

func (s *DirSink) PutPiece(_ context.Context, imageName string, p split.Piece, img image.Image) (string, error) {
	path := filepath.Join(s.Dir(imageName), split.PieceName(imageName, p, s.PieceFormat.Ext()))
	err := writeFile(path, func(w io.Writer) error {
		return codec.EncodePiece(w, img, s.PieceFormat)
	})
	if err != nil {
		return "", fmt.Errorf("write piece %s: %w", path, err)
	}
	logging.Logger().Debug("wrote piece", "path", path)
	return path, nil
}

func (s *DirSink) PutSpec(_ context.Context, imageName string, puzzle *split.Puzzle) (string, error) {
	path := filepath.Join(s.Dir(imageName), split.SpecName(imageName, s.SpecFormat.Ext()))
	err := writeFile(path, func(w io.Writer) error {
		return codec.EncodeSpec(w, puzzle, s.SpecFormat)
	})
	if err != nil {
		return "", fmt.Errorf("write spec %s: %w", path, err)
	}
	logging.Logger().Debug("wrote spec", "path", path)
	return path, nil
}

func (s *DirSink) PutFile(_ context.Context, imageName, name, _ string, data []byte) (string, error) {
	path := filepath.Join(s.Dir(imageName), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ErrUnsafeClean is returned by Clean when root would take a kept path with it.
var ErrUnsafeClean = errors.New("refusing to remove output directory")

// Clean removes root and everything below it. A missing root is not an
// error. Clean refuses to run when root is, or contains, one of keep.
func Clean(root string, keep ...string) error {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	for _, k := range keep {
		if k == "" {
			continue
		}
		inside, err := within(k, root)
		if err != nil {
			return err
		}
		if inside {
			return fmt.Errorf("%w %s: it contains %s", ErrUnsafeClean, root, k)
		}
	}
	logging.Logger().Info("removing previous output", "dir", root)
	return os.RemoveAll(root)
}

// within reports whether path is dir or lies below it.
func within(path, dir string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))), nil
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
