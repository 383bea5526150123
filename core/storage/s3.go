package storage

import (
	"bytes"
	"context"
	"fmt"
	"waitlist-service/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore writes opaque blobs under a key.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body []byte) (string, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(cfg S3Config) *S3Store {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	if cfg.Endpoint != "" {
		// MinIO and other S3 compatible stores
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Store{client: s3.New(opts), bucket: cfg.Bucket}
}

func (s *S3Store) Put(ctx context.Context, key string, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logger.Error("S3Store:Put:Error", "bucket", s.bucket, "key", key, "error", err)
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
