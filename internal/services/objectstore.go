package services

import (
	"context"
	"io"

	"github.com/airmencoders/tron-common-api-sub001/internal/storage"
)

// ObjectStore is the flat object-storage surface the services need.
// Implemented by storage.ObjectClient; tests substitute an in-memory
// fake.
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error)
	Copy(ctx context.Context, src, dst string) error
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context, keys []string) []storage.KeyError
	RemoveByPrefix(ctx context.Context, prefix string) []storage.KeyError
	DownloadAndZip(ctx context.Context, entries []storage.ObjectKeyEntry, w io.Writer) error
}
