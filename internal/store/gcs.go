package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcsstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// gcsStore implements Store for Google Cloud Storage.
type gcsStore struct {
	client *gcsstorage.Client
	bucket string
	prefix string
	name   string
}

// newGCSStore constructs a GCS-backed Store using Application Default
// Credentials.
func newGCSStore(cfg Config) (Store, error) {
	ctx := context.Background()

	client, err := gcsstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	return &gcsStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
		name:   cfg.Name,
	}, nil
}

func (t *gcsStore) Name() string {
	return t.name
}

// fullKey prepends the configured prefix to the given key.
func (t *gcsStore) fullKey(key string) string {
	return t.prefix + key
}

// obj returns a handle to the named object in the configured bucket.
func (t *gcsStore) obj(key string) *gcsstorage.ObjectHandle {
	return t.client.Bucket(t.bucket).Object(t.fullKey(key))
}

func (t *gcsStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	w := t.obj(key).NewWriter(ctx)

	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	if len(opts.Metadata) > 0 {
		w.Metadata = opts.Metadata
	}

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return fmt.Errorf("gcs write %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close writer %q: %w", key, err)
	}
	return nil
}

func (t *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	o := t.obj(key)

	attrs, err := o.Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("gcs Attrs %q: %w", key, err)
	}

	reader, err := o.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("gcs NewReader %q: %w", key, err)
	}

	info := ObjectInfo{
		Size: attrs.Size,
		ETag: attrs.Etag,
	}

	return reader, info, nil
}

func (t *gcsStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := t.obj(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("gcs Attrs %q: %w", key, err)
	}

	return ObjectInfo{
		Size: attrs.Size,
		ETag: attrs.Etag,
	}, nil
}

func (t *gcsStore) Delete(ctx context.Context, key string) error {
	err := t.obj(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcsstorage.ErrObjectNotExist) {
			return nil // Delete is idempotent.
		}
		return fmt.Errorf("gcs Delete %q: %w", key, err)
	}
	return nil
}

func (t *gcsStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	fullPrefix := t.fullKey(prefix)

	it := t.client.Bucket(t.bucket).Objects(ctx, &gcsstorage.Query{
		Prefix: fullPrefix,
	})

	var results []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs List prefix %q: %w", prefix, err)
		}

		logicalKey := strings.TrimPrefix(attrs.Name, t.prefix)
		results = append(results, ObjectInfo{
			Key:  logicalKey,
			Size: attrs.Size,
			ETag: attrs.Etag,
		})
	}

	return results, nil
}
