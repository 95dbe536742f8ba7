/*
Package storage keeps the binary payloads of voice and file chat messages in
an S3-compatible bucket. A voice or file message carries the object key as its
content; clients exchange the key for a short-lived download URL.
*/
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ServiceConfig holds the bucket location and credentials.
type ServiceConfig struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// ObjectInfo is the subset of object metadata the server uses.
type ObjectInfo struct {
	ContentType string
	Size        int64
}

// StorageService is the object storage used by the file endpoints.
type StorageService interface {
	// PresignUpload returns a URL the client can PUT the object to.
	PresignUpload(ctx context.Context, key, mimeType string, size int64, ttl time.Duration) (string, error)

	// PresignDownload returns a URL the client can GET the object from.
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Upload streams body to key.
	Upload(ctx context.Context, key, mimeType string, body io.Reader) error

	// Stat returns metadata for key, or ErrObjectNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// NewStorageService returns the S3 implementation.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}
