package main

import (
	"image"
	"testing"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

func TestGridFor(t *testing.T) {
	tests := []struct {
		w, h, size int
		want       split.Grid
	}{
		{512, 512, 256, split.Grid{Rows: 2, Cols: 2}},
		{513, 100, 256, split.Grid{Rows: 1, Cols: 3}},
		{10, 10, 0, split.Grid{Rows: 10, Cols: 10}},
	}
	for _, tt := range tests {
		got := gridFor(image.Rect(0, 0, tt.w, tt.h), tt.size)
		if got != tt.want {
			t.Errorf("gridFor(%dx%d, %d) = %+v, want %+v", tt.w, tt.h, tt.size, got, tt.want)
		}
		if _, err := split.Partition(split.Dimensions{Width: tt.w, Height: tt.h}, got); err != nil {
			t.Errorf("grid %+v invalid for %dx%d: %v", got, tt.w, tt.h, err)
		}
	}
}
