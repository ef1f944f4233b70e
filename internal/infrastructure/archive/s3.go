// Package archive stores exported DGII files in an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"

	"ncfledger/internal/domain/reports"
	"ncfledger/pkg/logger"
)

var _ reports.Archive = (*Store)(nil)

// Config holds bucket settings. Endpoint and PathStyle target MinIO or
// other S3-compatible servers.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	// Compress gzips objects and sets Content-Encoding.
	Compress bool
}

// Store is an S3 archive for report files.
type Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	compress bool
}

// New builds a Store using the default AWS credential chain unless static
// keys are configured.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *s3.Client, cfg Config) *Store {
	return &Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		compress: cfg.Compress,
	}
}

// Put implements reports.Archive.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		ContentType: aws.String(contentType),
	}

	body := data
	if s.compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress %s: %w", key, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress %s: %w", key, err)
		}
		body = buf.Bytes()
		input.ContentEncoding = aws.String("gzip")
	}
	input.Body = bytes.NewReader(body)
	input.ContentLength = aws.Int64(int64(len(body)))

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	logger.Info(ctx, "report archived", "bucket", s.bucket, "key", *input.Key, "bytes", len(body))
	return nil
}

// Get reads an archived file back, decompressing when needed.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	defer out.Body.Close()

	var r io.Reader = out.Body
	if aws.ToString(out.ContentEncoding) == "gzip" {
		zr, err := gzip.NewReader(out.Body)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", key, err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}
