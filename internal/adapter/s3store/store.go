// Package s3store reads the staged lookup CSV from, and writes snapshots to,
// an S3 bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const csvContentType = "text/csv"

// api is the subset of *s3.Client the store uses.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store is one bucket.
type Store struct {
	client api
	bucket string
	region string
}

// New loads AWS credentials from the default chain. A non-empty endpoint
// switches to path-style addressing for S3-compatible servers.
func New(ctx context.Context, bucket, region, endpoint string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{client: client, bucket: bucket, region: region}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Region returns the bucket's region.
func (s *Store) Region() string { return s.region }

// WriteObject uploads data under key, replacing any existing object.
func (s *Store) WriteObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(csvContentType),
	})
	if err != nil {
		return fmt.Errorf("s3store: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Open streams the object stored under key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

// CheckReadiness verifies the bucket is reachable with the current credentials.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s: %w", s.bucket, err)
	}
	return nil
}
