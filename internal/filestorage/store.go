// File: internal/filestorage/store.go
package filestorage

import (
	"context"
	"fmt"

	"launchpad_backend/internal/config"

	"go.uber.org/zap"
)

// ObjectStore is a flat key/value blob backend that serves objects at public URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Copy duplicates src to dst within the store.
	Copy(ctx context.Context, src, dst string) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	URL(key string) string
	// KeyFromURL reverses URL. It reports false for URLs the store does not serve.
	KeyFromURL(url string) (string, bool)
}

// NewObjectStore selects the backend configured by STORAGE_BACKEND.
func NewObjectStore(cfg *config.Config, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocalStore(cfg.StorageLocalPath, cfg.StoragePublicURL, logger)
	case "s3":
		return NewS3Store(S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicURL:       cfg.StoragePublicURL,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
