// Package objectstore implements the Artifact Uploader: it walks a
// finished transcode output directory and uploads every file to an
// S3-compatible object store with bounded concurrency, and proxies
// objects back out for playback.
package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jmylchreest/vodforge/internal/config"
)

// Client wraps an S3-compatible object store client bound to a single
// bucket.
type Client struct {
	minio  *minio.Client
	bucket string
}

// NewClient dials an S3-compatible endpoint per cfg. The bucket is
// assumed to already exist; this service never creates buckets.
func NewClient(cfg config.ObjectStoreConfig) (*Client, error) {
	lookup := minio.BucketLookupAuto
	if cfg.UsePathStyle {
		lookup = minio.BucketLookupPath
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Client{minio: minioClient, bucket: cfg.Bucket}, nil
}

// Put uploads r under key, inferring size from the caller.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.minio.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Get opens a streaming reader for the object at key. The caller must
// close it.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.minio.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy: force the round trip now so callers see a 404
	// immediately rather than on first Read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}
