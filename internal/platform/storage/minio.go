package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options configures the S3 compatible object store.
type Options struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PresignTTL time.Duration
}

// ObjectStore wraps a minio client bound to one bucket.
type ObjectStore struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

// New creates a minio client and ensures the bucket exists.
func New(ctx context.Context, opts Options) (*ObjectStore, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("platform/storage: endpoint and bucket are required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("platform/storage: new client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("platform/storage: bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("platform/storage: make bucket: %w", err)
		}
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ObjectStore{client: client, bucket: opts.Bucket, presignTTL: ttl}, nil
}

// PresignUpload returns a URL the browser can PUT the object to.
func (s *ObjectStore) PresignUpload(ctx context.Context, key string) (*url.URL, error) {
	return s.client.PresignedPutObject(ctx, s.bucket, key, s.presignTTL)
}

// PresignDownload returns a short lived GET URL for the object.
func (s *ObjectStore) PresignDownload(ctx context.Context, key, filename string) (*url.URL, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	return s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, params)
}

// Remove deletes an object. Missing objects are not an error.
func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}
	return err
}
