// Package codec reads source images and writes pieces and puzzle records.
package codec

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
	"gopkg.in/yaml.v3"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

// PieceFormat is the encoding of piece image files.
type PieceFormat string

const (
	PNG  PieceFormat = "png"
	JPEG PieceFormat = "jpeg"
)

// SpecFormat is the encoding of the puzzle record.
type SpecFormat string

const (
	JSON SpecFormat = "json"
	YAML SpecFormat = "yaml"
)

// ParsePieceFormat accepts png, jpg and jpeg in any case.
func ParsePieceFormat(s string) (PieceFormat, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return "", fmt.Errorf("unknown piece format %q", s)
}

// ParseSpecFormat accepts json, yaml and yml in any case.
func ParseSpecFormat(s string) (SpecFormat, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown spec format %q", s)
}

// Ext is the file extension for f without the dot.
func (f PieceFormat) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return "png"
}

func (f PieceFormat) ContentType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f SpecFormat) Ext() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

func (f SpecFormat) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// DecodeImage opens and decodes a png, jpeg or webp file.
func DecodeImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// EncodePiece writes img to w in format f.
func EncodePiece(w io.Writer, img image.Image, f PieceFormat) error {
	format := imaging.PNG
	if f == JPEG {
		format = imaging.JPEG
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(95))
}

// EncodeSpec writes a pretty-printed puzzle record.
func EncodeSpec(w io.Writer, p *split.Puzzle, f SpecFormat) error {
	if f == YAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode yaml spec: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode json spec: %w", err)
	}
	return nil
}

// DecodeSpec reads a puzzle record written by EncodeSpec.
func DecodeSpec(r io.Reader, f SpecFormat) (*split.Puzzle, error) {
	var p split.Puzzle
	if f == YAML {
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return nil, fmt.Errorf("decode yaml spec: %w", err)
		}
		return &p, nil
	}
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode json spec: %w", err)
	}
	return &p, nil
}
