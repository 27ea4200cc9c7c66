// Package storage persists puzzle pieces and records.
package storage

import (
	"context"
	"image"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

// Sink receives the output of one puzzle at a time. Begin is called once
// per image before any piece or record is written.
type Sink interface {
	Begin(ctx context.Context, imageName string) error
	// PutPiece stores one piece and returns where it was written.
	PutPiece(ctx context.Context, imageName string, p split.Piece, img image.Image) (string, error)
	// PutSpec stores the puzzle record and returns where it was written.
	PutSpec(ctx context.Context, imageName string, puzzle *split.Puzzle) (string, error)
	// PutFile stores an auxiliary file such as a preview next to the pieces.
	PutFile(ctx context.Context, imageName, name, contentType string, data []byte) (string, error)
}
