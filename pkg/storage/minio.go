package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/codec"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/discover"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/split"
)

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether a bucket was configured.
func (c MinioConfig) Enabled() bool { return c.Bucket != "" }

// objectStore is the subset of *s3.Client used here.
type objectStore interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads pieces and records to <prefix>/<imageName>/ in a bucket.
type S3Sink struct {
	client      objectStore
	bucket      string
	prefix      string
	pieceFormat codec.PieceFormat
	specFormat  codec.SpecFormat
}

// NewClient builds an S3 client pointed at a MinIO (or any S3) endpoint.
func NewClient(ctx context.Context, cfg MinioConfig) (*s3.Client, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...any) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.Endpoint,
			SigningRegion:     cfg.Region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Sink connects to the configured endpoint and makes sure the bucket exists.
func NewS3Sink(ctx context.Context, cfg MinioConfig, pf codec.PieceFormat, sf codec.SpecFormat) (*S3Sink, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := ensureBucket(ctx, client, cfg.Bucket); err != nil {
		return nil, err
	}
	return newS3Sink(client, cfg, pf, sf), nil
}

func newS3Sink(client objectStore, cfg MinioConfig, pf codec.PieceFormat, sf codec.SpecFormat) *S3Sink {
	if pf == "" {
		pf = codec.PNG
	}
	if sf == "" {
		sf = codec.JSON
	}
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, pieceFormat: pf, specFormat: sf}
}

func ensureBucket(ctx context.Context, client objectStore, bucket string) error {
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err == nil {
		return nil
	}
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logging.Logger().Info("created bucket", "bucket", bucket)
	return nil
}

// Key is the object key for name under imageName.
func (s *S3Sink) Key(imageName, name string) string {
	return path.Join(s.prefix, imageName, name)
}

func (s *S3Sink) Begin(context.Context, string) error { return nil }

func (s *S3Sink) PutPiece(ctx context.Context, imageName string, p split.Piece, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := codec.EncodePiece(&buf, img, s.pieceFormat); err != nil {
		return "", err
	}
	key := s.Key(imageName, split.PieceName(imageName, p, s.pieceFormat.Ext()))
	return key, s.put(ctx, key, s.pieceFormat.ContentType(), buf.Bytes())
}

func (s *S3Sink) PutSpec(ctx context.Context, imageName string, puzzle *split.Puzzle) (string, error) {
	var buf bytes.Buffer
	if err := codec.EncodeSpec(&buf, puzzle, s.specFormat); err != nil {
		return "", err
	}
	key := s.Key(imageName, split.SpecName(imageName, s.specFormat.Ext()))
	return key, s.put(ctx, key, s.specFormat.ContentType(), buf.Bytes())
}

func (s *S3Sink) PutFile(ctx context.Context, imageName, name, contentType string, data []byte) (string, error) {
	key := s.Key(imageName, name)
	return key, s.put(ctx, key, contentType, data)
}

func (s *S3Sink) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logging.Logger().Debug("uploaded", "bucket", s.bucket, "key", key)
	return nil
}

// UploadDir uploads the pieces and record files found in dir under
// <prefix>/<imageName>/. Individual upload failures are logged and the
// remaining files are still attempted; the keys that made it are returned.
func (s *S3Sink) UploadDir(ctx context.Context, imageName, dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		contentType := "application/octet-stream"
		switch ext := strings.ToLower(filepath.Ext(f.Name())); {
		case ext == ".jpg":
			contentType = "image/jpeg"
		case discover.IsImage(f.Name()):
			contentType = "image/" + ext[1:]
		case ext == ".json":
			contentType = codec.JSON.ContentType()
		case ext == ".yaml":
			contentType = codec.YAML.ContentType()
		}

		fpath := filepath.Join(dir, f.Name())
		body, err := os.ReadFile(fpath)
		if err != nil {
			logging.Logger().Warn("could not read file", "path", fpath, "err", err)
			continue
		}
		key := s.Key(imageName, f.Name())
		if err := s.put(ctx, key, contentType, body); err != nil {
			logging.Logger().Warn("upload failed", "key", key, "err", err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
