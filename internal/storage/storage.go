// Package storage stores uploaded product images on a local directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"

	"storefront/internal/config"
)

// Disk is an object store addressed by slash-separated keys.
type Disk interface {
	// Put writes r to key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
}

// New returns the disk selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Disk, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalDisk(cfg.StorageLocalRoot, cfg.StoragePublicURL)
	case "s3":
		return NewS3Disk(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Key:       cfg.S3Key,
			Secret:    cfg.S3Secret,
			PublicURL: cfg.StoragePublicURL,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
	}
}
