// Package s3 implements core.Store on an S3-compatible service (AWS S3 or MinIO).
package s3

import (
	"checklist/internal/blob/core"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var _ core.Store = (*Store)(nil)

// Store implements core.Store against a single bucket. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters. Empty credentials fall back
// to the default AWS credentials chain.
type Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional; if set enables custom endpoint (e.g. MinIO)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// New creates an S3 blob store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Put uploads r to key. PutObject replaces any existing object atomically and
// evaluates IfMatch/IfNoneMatch server side. Size is left zero; S3 does not
// echo it on upload.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: r}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if opts.IfMatch != "" {
		input.IfMatch = aws.String("\"" + opts.IfMatch + "\"")
	}
	if opts.IfNoneMatch {
		input.IfNoneMatch = aws.String("*")
	}
	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isConditionFailed(err) || (opts.IfMatch != "" && isNotFound(err)) {
			return core.Info{}, fmt.Errorf("%s: %w", key, core.ErrPreconditionFailed)
		}
		return core.Info{}, err
	}
	info := core.Info{Key: key, ContentType: opts.ContentType, LastModified: time.Now().UTC()}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, "\"")
	}
	return info, nil
}

// Get downloads key. Missing objects report core.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return core.Info{}, nil, fmt.Errorf("%s: %w", key, core.ErrNotFound)
		}
		return core.Info{}, nil, err
	}
	info := core.Info{Key: key, Size: aws.ToInt64(out.ContentLength), ContentType: aws.ToString(out.ContentType), ETag: strings.Trim(aws.ToString(out.ETag), "\"")}
	info.LastModified = time.Now().UTC()
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, out.Body, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// isConditionFailed matches 412 Precondition Failed and the 409 S3 returns
// when a concurrent conditional write to the same key wins.
func isConditionFailed(err error) bool {
	var re *awshttp.ResponseError
	if !errors.As(err, &re) {
		return false
	}
	code := re.HTTPStatusCode()
	return code == http.StatusPreconditionFailed || code == http.StatusConflict
}
