package asset

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader mirrors saved assets to a bucket under prefix/yyyy/mm/dd/.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

func NewS3Uploader(ctx context.Context, bucket, region, prefix string, logger *slog.Logger) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

func newS3Uploader(client putObjectAPI, bucket, prefix string, logger *slog.Logger) *S3Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
		logger: logger.With("component", "s3-uploader"),
	}
}

func (u *S3Uploader) Key(filename string) string {
	now := u.now()
	day := fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day())
	if u.prefix == "" {
		return path.Join(day, filename)
	}
	return path.Join(u.prefix, day, filename)
}

func (u *S3Uploader) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	key := u.Key(filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	u.logger.Info("uploaded asset", "key", key, "bytes", len(data))
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
