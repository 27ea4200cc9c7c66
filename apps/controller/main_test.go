package main

import (
	"reflect"
	"testing"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/config"
)

func TestPieceObjects(t *testing.T) {
	keys := []string{"cat/cat-spec.json", "cat/cat-row0-col0.png", "cat/cat-preview.png", "cat/cat-row0-col1.png"}
	pieces := []string{"out/cat/cat-row0-col0.png", "out/cat/cat-row0-col1.png"}
	got := pieceObjects(keys, pieces)
	want := []string{"cat/cat-row0-col0.png", "cat/cat-row0-col1.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pieceObjects = %v, want %v", got, want)
	}

	keys = []string{"my-row-photo/my-row-photo-spec.json", "my-row-photo/my-row-photo-row0-col0.png"}
	pieces = []string{"out/my-row-photo/my-row-photo-row0-col0.png"}
	got = pieceObjects(keys, pieces)
	want = []string{"my-row-photo/my-row-photo-row0-col0.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pieceObjects = %v, want %v", got, want)
	}
}

func TestApplyControllerDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.S3.Bucket = "custom"
	applyControllerDefaults(&cfg)

	if cfg.Rows != 4 || cfg.Cols != 4 {
		t.Errorf("grid = %dx%d", cfg.Rows, cfg.Cols)
	}
	if cfg.Kube.BucketURL != "http://minio.default.svc:9000/custom" {
		t.Errorf("bucket url = %q", cfg.Kube.BucketURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
