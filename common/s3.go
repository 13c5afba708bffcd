package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config names the artifact bucket. Region and Profile are optional
// overrides on top of the default AWS credential chain.
type S3Config struct {
	Bucket       string
	Prefix       string // e.g. "shorts/"
	Region       string
	Profile      string
	UsePathStyle bool // MinIO and other S3-compatible stores
}

// S3 mirrors finished videos to a bucket so they outlive the local output dir.
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3 loads the default AWS config for cfg and returns a bucket client.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := make([]func(*config.LoadOptions) error, 0, 2)
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	pathStyle := cfg.UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = pathStyle })
	return NewS3FromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3FromClient wraps an existing SDK client.
// NewS3FromClient wraps an existing client. Keys are written under prefix.
func NewS3FromClient(c *s3.Client, bucket, prefix string) *S3 {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{
		client:  c,
		presign: s3.NewPresignClient(c),
		bucket:  bucket,
		prefix:  prefix,
	}
}

// Key returns the object key for a job's video.
func (s *S3) Key(jobID, localPath string) string {
	return s.prefix + jobID + path.Ext(localPath)
}

// Upload stores the file at localPath under key.
func (s *S3) Upload(ctx context.Context, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	put := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: f}
	if contentType != "" {
		put.ContentType = &contentType
	}
	if _, err := s.client.PutObject(ctx, put); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Exists reports whether key is already in the bucket. A missing object is
// not an error.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("head s3://%s/%s: %w", s.bucket, key, err)
	}
}

// isNotFound matches both the raw 404 HEAD response and a typed NotFound.
func isNotFound(err error) bool {
	var resp *awshttp.ResponseError
	if errors.As(err, &resp) && resp.HTTPStatusCode() == 404 {
		return true
	}
	var api smithy.APIError
	return errors.As(err, &api) && api.ErrorCode() == "NotFound"
}

// PresignGet returns a time-limited download URL for key.
func (s *S3) PresignGet(ctx context.Context, key string, lifetime time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		s3.WithPresignExpires(lifetime))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// Mirror uploads the artifact unless an object with the same key already
// exists, and returns the key with a presigned download URL.
func (s *S3) Mirror(ctx context.Context, jobID, localPath string) (string, string, error) {
	key := s.Key(jobID, localPath)

	exists, err := s.Exists(ctx, key)
	if err != nil {
		return "", "", err
	}
	if !exists {
		if err := s.Upload(ctx, key, localPath, "video/mp4"); err != nil {
			return "", "", err
		}
	}

	url, err := s.PresignGet(ctx, key, 24*time.Hour)
	if err != nil {
		return key, "", err
	}
	return key, url, nil
}
