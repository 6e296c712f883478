package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3Store implements Store for Amazon S3.
type s3Store struct {
	client *s3.Client
	bucket string
	prefix string
	name   string
}

// newS3Store constructs an S3-backed Store from the provided Config.
func newS3Store(cfg Config) (Store, error) {
	ctx := context.Background()

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &s3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
		name:   cfg.Name,
	}, nil
}

// normalizePrefix ensures a non-empty prefix ends with a slash.
func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func (t *s3Store) Name() string {
	return t.name
}

// fullKey prepends the configured prefix to the given key.
func (t *s3Store) fullKey(key string) string {
	return t.prefix + key
}

func (t *s3Store) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.fullKey(key)),
		Body:   body,
	}

	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	_, err := t.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 PutObject %q: %w", key, err)
	}
	return nil
}

func (t *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.fullKey(key)),
	}

	output, err := t.client.GetObject(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("s3 GetObject %q: %w", key, err)
	}

	info := ObjectInfo{
		Size: aws.ToInt64(output.ContentLength),
	}
	if output.ETag != nil {
		info.ETag = *output.ETag
	}

	return output.Body, info, nil
}

func (t *s3Store) Head(ctx context.Context, key string) (ObjectInfo, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.fullKey(key)),
	}

	output, err := t.client.HeadObject(ctx, input)
	if err != nil {
		if isS3NotFound(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("s3 HeadObject %q: %w", key, err)
	}

	info := ObjectInfo{
		Size: aws.ToInt64(output.ContentLength),
	}
	if output.ETag != nil {
		info.ETag = *output.ETag
	}

	return info, nil
}

func (t *s3Store) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.fullKey(key)),
	}

	_, err := t.client.DeleteObject(ctx, input)
	if err != nil {
		return fmt.Errorf("s3 DeleteObject %q: %w", key, err)
	}
	return nil
}

func (t *s3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	fullPrefix := t.fullKey(prefix)
	var results []ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 ListObjectsV2 prefix %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			objKey := aws.ToString(obj.Key)
			// Strip the internal prefix so callers see the logical key.
			logicalKey := strings.TrimPrefix(objKey, t.prefix)

			info := ObjectInfo{
				Key:  logicalKey,
				Size: aws.ToInt64(obj.Size),
			}
			if obj.ETag != nil {
				info.ETag = *obj.ETag
			}
			results = append(results, info)
		}
	}

	return results, nil
}

// isS3NotFound returns true if the error indicates the object was not found.
func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	// HeadObject returns a generic error with status 404.
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
