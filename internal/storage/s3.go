package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3-compatible evidence bucket.
type S3Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3Storage presigns evidence uploads against an S3-compatible backend.
type S3Storage struct {
	presign *s3.PresignClient
	bucket  string
	logger  *slog.Logger
}

// NewS3Storage creates an S3Storage. A custom Endpoint (MinIO and similar)
// switches to path-style addressing.
func NewS3Storage(ctx context.Context, opts S3Options, logger *slog.Logger) (*S3Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("s3 evidence storage configured", "endpoint", opts.Endpoint, "bucket", opts.Bucket)

	return &S3Storage{
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
		logger:  logger,
	}, nil
}

// PresignUpload returns a PUT URL. The client must send the same Content-Type.
func (s *S3Storage) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.logger.Error("presign upload failed", "key", key, "error", err)
		return "", err
	}
	return req.URL, nil
}

// PresignDownload returns a GET URL.
func (s *S3Storage) PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		s.logger.Error("presign download failed", "key", key, "error", err)
		return "", err
	}
	return req.URL, nil
}
