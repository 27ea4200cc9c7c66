// controller generates a puzzle from one image, uploads it to MinIO and
// starts a Kubernetes Job per piece to filter it in the cluster.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/config"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/kube"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/pipeline"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/storage"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: controller <image-path>")
		os.Exit(1)
	}
	imagePath := os.Args[1]

	cfg, err := config.Load(os.Getenv("PUZZLE_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	applyControllerDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outDir := cfg.Output()
	sink := storage.NewDirSink(outDir, "", "")
	gen := &pipeline.Generator{Grid: cfg.Grid(), Sink: sink, Workers: cfg.Workers}
	res, err := gen.Image(ctx, imagePath)
	if err != nil {
		log.Fatalf("error splitting image: %v", err)
	}
	fmt.Printf("Pieces created for %s: %d\n", res.Name, len(res.Pieces))

	s3sink, err := storage.NewS3Sink(ctx, cfg.S3, "", "")
	if err != nil {
		log.Fatalf("failed to connect to MinIO: %v", err)
	}
	keys, err := s3sink.UploadDir(ctx, res.Name, sink.Dir(res.Name))
	if err != nil {
		log.Fatalf("failed to upload pieces to MinIO: %v", err)
	}

	jobs, err := kube.NewJobProcessor(cfg.Kube)
	if err != nil {
		log.Fatalf("kubernetes: %v", err)
	}
	pieceKeys := pieceObjects(keys, res.Pieces)
	failures := postprocess.Run(ctx, jobs, pieceKeys, cfg.PostProcess.Workers)
	for _, f := range failures {
		log.Printf("Failed to create job for piece %s: %v", f.Path, f.Err)
	}
	log.Printf("Jobs created: %d/%d", len(pieceKeys)-len(failures), len(pieceKeys))
}

// applyControllerDefaults fills in the local MinIO and cluster settings
// used by the development setup.
func applyControllerDefaults(cfg *config.Config) {
	if cfg.Rows == 0 {
		cfg.Rows = 4
	}
	if cfg.Cols == 0 {
		cfg.Cols = 4
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./shared/puzzles"
	}
	if cfg.S3.Endpoint == "" {
		cfg.S3.Endpoint = "http://localhost:9000"
	}
	if cfg.S3.AccessKey == "" {
		cfg.S3.AccessKey = "minioadmin"
	}
	if cfg.S3.SecretKey == "" {
		cfg.S3.SecretKey = "minioadmin"
	}
	if cfg.S3.Bucket == "" {
		cfg.S3.Bucket = "puzzles-bucket"
	}
	if cfg.Kube.BucketURL == "" {
		cfg.Kube.BucketURL = "http://minio.default.svc:9000/" + cfg.S3.Bucket
	}
}

// pieceObjects keeps the uploaded keys that hold one of the written pieces,
// dropping the record and any auxiliary files.
func pieceObjects(keys, pieces []string) []string {
	written := make(map[string]bool, len(pieces))
	for _, p := range pieces {
		written[filepath.Base(p)] = true
	}
	var out []string
	for _, k := range keys {
		if written[path.Base(k)] {
			out = append(out, k)
		}
	}
	return out
}
