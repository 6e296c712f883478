package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// azureStore implements Store for Azure Blob Storage.
type azureStore struct {
	client    *azblob.Client
	container string
	prefix    string
	name      string
}

// newAzureStore constructs an Azure Blob Storage-backed Store.
func newAzureStore(cfg Config) (Store, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.StorageAccount)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure blob client: %w", err)
	}

	return &azureStore{
		client:    client,
		container: cfg.Container,
		prefix:    normalizePrefix(cfg.Prefix),
		name:      cfg.Name,
	}, nil
}

func (t *azureStore) Name() string {
	return t.name
}

// fullKey prepends the configured prefix to the given key.
func (t *azureStore) fullKey(key string) string {
	return t.prefix + key
}

func (t *azureStore) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error {
	blobName := t.fullKey(key)

	uploadOpts := &blockblob.UploadStreamOptions{}

	if opts.ContentType != "" {
		uploadOpts.HTTPHeaders = &blob.HTTPHeaders{
			BlobContentType: &opts.ContentType,
		}
	}

	if len(opts.Metadata) > 0 {
		m := make(map[string]*string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			v := v
			m[k] = &v
		}
		uploadOpts.Metadata = m
	}

	_, err := t.client.UploadStream(ctx, t.container, blobName, body, uploadOpts)
	if err != nil {
		return fmt.Errorf("azure UploadStream %q: %w", key, err)
	}
	return nil
}

func (t *azureStore) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	blobName := t.fullKey(key)

	resp, err := t.client.DownloadStream(ctx, t.container, blobName, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ObjectInfo{}, ErrNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("azure DownloadStream %q: %w", key, err)
	}

	info := ObjectInfo{}
	if resp.ETag != nil {
		info.ETag = string(*resp.ETag)
	}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}

	return resp.Body, info, nil
}

func (t *azureStore) Head(ctx context.Context, key string) (ObjectInfo, error) {
	blobName := t.fullKey(key)

	blobClient := t.client.ServiceClient().NewContainerClient(t.container).NewBlobClient(blobName)
	props, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("azure GetProperties %q: %w", key, err)
	}

	info := ObjectInfo{}
	if props.ETag != nil {
		info.ETag = string(*props.ETag)
	}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}

	return info, nil
}

func (t *azureStore) Delete(ctx context.Context, key string) error {
	blobName := t.fullKey(key)

	_, err := t.client.DeleteBlob(ctx, t.container, blobName, nil)
	if err != nil {
		if isAzureNotFound(err) {
			return nil // Delete is idempotent.
		}
		return fmt.Errorf("azure DeleteBlob %q: %w", key, err)
	}
	return nil
}

func (t *azureStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	fullPrefix := t.fullKey(prefix)
	var results []ObjectInfo

	pager := t.client.NewListBlobsFlatPager(t.container, &container.ListBlobsFlatOptions{
		Prefix: &fullPrefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azure ListBlobsFlat prefix %q: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			logicalKey := strings.TrimPrefix(*item.Name, t.prefix)
			info := ObjectInfo{
				Key: logicalKey,
			}
			if item.Properties != nil {
				if item.Properties.ContentLength != nil {
					info.Size = *item.Properties.ContentLength
				}
				if item.Properties.ETag != nil {
					info.ETag = string(*item.Properties.ETag)
				}
			}
			results = append(results, info)
		}
	}

	return results, nil
}

// isAzureNotFound returns true if the Azure error indicates a 404.
func isAzureNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}
