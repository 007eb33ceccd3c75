package factory

import (
	"fmt"
	"strings"

	"go-attack-planner/internal/storage"
)

// StorageType represents different types of image reference backends
type StorageType string

const (
	// HTTPStorage for http and https references
	HTTPStorage StorageType = "http"
	// AzureStorage for azblob references
	AzureStorage StorageType = "azure"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.Fetcher, error)
	// ForScheme maps a reference scheme to its fetcher.
	ForScheme(scheme string) (storage.Fetcher, error)
}

// StorageOptions carries the settings the fetchers need.
type StorageOptions struct {
	HTTP                storage.HTTPOptions
	AzureStorageAccount string
	AzureStorageKey     string
}

// storageFactory builds each fetcher once and reuses it
type storageFactory struct {
	http  storage.Fetcher
	azure storage.Fetcher
	// azureErr is why the Azure fetcher is unavailable, if it is.
	azureErr error
}

// NewStorageFactory creates a new storage factory. Azure support is only
// enabled when both account and key are set.
func NewStorageFactory(opts StorageOptions) StorageFactory {
	f := &storageFactory{
		http: storage.NewHTTPFetcher(opts.HTTP),
	}

	if opts.AzureStorageAccount == "" || opts.AzureStorageKey == "" {
		f.azureErr = fmt.Errorf("azure storage is not configured")
		return f
	}
	azure, err := storage.NewAzureFetcher(opts.AzureStorageAccount, opts.AzureStorageKey, opts.HTTP.MaxBytes)
	if err != nil {
		f.azureErr = err
		return f
	}
	f.azure = azure
	return f
}

// CreateStorage returns the fetcher for storageType
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.Fetcher, error) {
	switch storageType {
	case HTTPStorage:
		return f.http, nil
	case AzureStorage:
		if f.azure == nil {
			return nil, f.azureErr
		}
		return f.azure, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

func (f *storageFactory) ForScheme(scheme string) (storage.Fetcher, error) {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return f.CreateStorage(HTTPStorage)
	case storage.BlobScheme:
		return f.CreateStorage(AzureStorage)
	default:
		return nil, fmt.Errorf("unsupported reference scheme: %q", scheme)
	}
}
