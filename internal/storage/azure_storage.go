package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobScheme is the reference scheme served by AzureFetcher.
const BlobScheme = "azblob"

// AzureFetcher reads images from Azure Blob Storage. References look like
// azblob://<container>/<blob path>.
type AzureFetcher struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureFetcher creates a fetcher authenticated with a shared key.
func NewAzureFetcher(accountName, accountKey string, maxBytes int64) (*AzureFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &AzureFetcher{client: client, maxBytes: maxBytes}, nil
}

// Fetch downloads the referenced blob.
func (s *AzureFetcher) Fetch(ctx context.Context, ref string) (*Object, error) {
	containerName, blobName, err := ParseBlobRef(ref)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.Body
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", s.maxBytes)
	}

	obj := &Object{Data: data}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	return obj, nil
}

// ParseBlobRef splits an azblob:// reference into container and blob name.
func ParseBlobRef(ref string) (string, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob reference: %w", err)
	}
	if u.Scheme != BlobScheme {
		return "", "", fmt.Errorf("invalid blob reference: scheme must be %s", BlobScheme)
	}

	blobName := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob reference: expected %s://<container>/<blob>", BlobScheme)
	}
	return u.Host, blobName, nil
}
