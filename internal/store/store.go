// Package store abstracts the object stores that hold published tree
// snapshots. Implementations exist for S3, Azure Blob Storage, GCS, and
// an in-memory store used in tests.
package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get and Head when the key does not exist.
var ErrNotFound = errors.New("object not found")

// PutOptions controls optional behavior for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object. Key is set on List results; Get
// and Head leave it empty since the caller supplied it.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// Store is the storage abstraction for published snapshot objects.
// Delete is idempotent: removing an absent key is not an error.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// List returns all objects under the given prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Name returns the configured store name for diagnostics.
	Name() string
}

// Config holds the settings used by New to construct a Store.
type Config struct {
	Name           string `yaml:"name"`
	Type           string `yaml:"type"` // "s3", "azure", "gcs", "memory"
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	StorageAccount string `yaml:"storage_account"`
	Container      string `yaml:"container"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoff   string `yaml:"retry_backoff"` // "exponential" | "linear"
}
