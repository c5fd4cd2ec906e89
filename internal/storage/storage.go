// Package storage keeps uploaded documents (identity proofs, customs
// paperwork) in a blob backend selected by configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/transit241/port-logistics/internal"
)

// BlobStore stores content under key and returns the URL it is served from.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

var ErrInvalidKey = errors.New("storage: invalid key")

// NewFromConfig builds the BlobStore named by cfg.Driver, wrapped in age
// encryption when a recipient is configured.
func NewFromConfig(ctx context.Context, cfg internal.StorageConfig) (BlobStore, error) {
	var (
		store BlobStore
		err   error
	)
	switch cfg.Driver {
	case "memory":
		store = NewMemoryStore(cfg.PublicBaseURL)
	case "filesystem":
		store, err = NewFilesystemStore(cfg.LocalDir, cfg.PublicBaseURL)
	case "s3":
		store, err = NewS3Store(ctx, S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.AgeRecipient != "" {
		return NewAgeStore(store, cfg.AgeRecipient)
	}
	return store, nil
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
