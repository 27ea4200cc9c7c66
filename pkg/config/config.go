// Package config loads pipeline settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/kube"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/postprocess"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/storage"
)

// OutputFolder is the default output directory name inside the source dir.
const OutputFolder = "GeneratedPuzzles"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	SourceDir   string               `yaml:"sourceDir"`
	OutputDir   string               `yaml:"outputDir"`
	Rows        int                  `yaml:"rows"`
	Cols        int                  `yaml:"cols"`
	PieceFormat string               `yaml:"pieceFormat"`
	SpecFormat  string               `yaml:"specFormat"`
	Clean       bool                 `yaml:"clean"`
	Workers     int                  `yaml:"workers"`
	PostProcess postprocess.Settings `yaml:"postProcess"`
	S3          storage.MinioConfig  `yaml:"s3"`
	Kube        kube.Config          `yaml:"kube"`
	Preview     bool                 `yaml:"preview"`
	Sheet       bool                 `yaml:"sheet"`
	LogLevel    string               `yaml:"logLevel"`
}

// Default returns the settings used when nothing else is specified. Rows
// and Cols are left at zero so a front end can ask for them.
func Default() Config {
	return Config{
		SourceDir:   ".",
		PieceFormat: string(codec.PNG),
		SpecFormat:  string(codec.JSON),
		Clean:       true,
		Workers:     runtime.NumCPU(),
		PostProcess: postprocess.Settings{Kind: postprocess.KindNone, Workers: runtime.NumCPU()},
		S3:          storage.MinioConfig{Region: "us-east-1"},
		LogLevel:    "info",
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from PUZZLE_* and MINIO_* variables.
func (c *Config) ApplyEnv() {
	c.SourceDir = getEnv("PUZZLE_SOURCE_DIR", c.SourceDir)
	c.OutputDir = getEnv("PUZZLE_OUTPUT_DIR", c.OutputDir)
	c.Rows = getEnvInt("PUZZLE_ROWS", c.Rows)
	c.Cols = getEnvInt("PUZZLE_COLS", c.Cols)
	c.Workers = getEnvInt("PUZZLE_WORKERS", c.Workers)
	c.LogLevel = getEnv("PUZZLE_LOG_LEVEL", c.LogLevel)
	c.S3.Endpoint = getEnv("MINIO_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getEnv("MINIO_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("MINIO_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = getEnv("MINIO_BUCKET", c.S3.Bucket)
}

// Output is OutputDir, or GeneratedPuzzles inside SourceDir when unset.
func (c Config) Output() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.SourceDir, OutputFolder)
}

func (c Config) Grid() split.Grid {
	return split.Grid{Rows: c.Rows, Cols: c.Cols}
}

// Validate checks everything except the image-dependent grid bounds.
func (c Config) Validate() error {
	if c.Rows < 1 {
		return fmt.Errorf("%w: rows must be a positive integer, got %d", ErrInvalid, c.Rows)
	}
	if c.Cols < 1 {
		return fmt.Errorf("%w: cols must be a positive integer, got %d", ErrInvalid, c.Cols)
	}
	if _, err := codec.ParsePieceFormat(c.PieceFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := codec.ParseSpecFormat(c.SpecFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.PostProcess.Kind {
	case "", postprocess.KindNone:
	case postprocess.KindExec:
		if c.PostProcess.Tool == "" {
			return fmt.Errorf("%w: postProcess.tool is required for kind exec", ErrInvalid)
		}
	case postprocess.KindWasm:
		if c.PostProcess.WasmFile == "" {
			return fmt.Errorf("%w: postProcess.wasmFile is required for kind wasm", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown postProcess.kind %q", ErrInvalid, c.PostProcess.Kind)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalid)
	}
	return nil
}

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
