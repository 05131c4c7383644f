package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/airmencoders/tron-common-api-sub001/internal/config"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectInfo is the subset of object metadata the rest of the system
// cares about.
type ObjectInfo struct {
	ContentType  string
	Size         int64
	LastModified time.Time
}

// KeyError reports a per-key failure from a batch operation.
type KeyError struct {
	Key string
	Err error
}

func (k KeyError) Error() string {
	return fmt.Sprintf("%s: %v", k.Key, k.Err)
}

type ObjectClient struct {
	client *minio.Client
	bucket string
}

func NewObjectClient(cfg config.MinIOConfig) (*ObjectClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &ObjectClient{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (m *ObjectClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}

// Upload streams bytes under key. Same key replaces prior content.
func (m *ObjectClient) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("object_upload_failed", err, map[string]interface{}{
			"object_key":   key,
			"size":         size,
			"content_type": contentType,
			"bucket":       m.bucket,
		})
		return err
	}
	logger.Info("object_upload_success", map[string]interface{}{
		"object_key": key,
		"size":       size,
		"bucket":     m.bucket,
	})
	return nil
}

func (m *ObjectClient) Download(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		logger.Error("object_download_failed", err, map[string]interface{}{
			"object_key": key,
			"bucket":     m.bucket,
		})
		return nil, nil, err
	}

	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		logger.Error("object_stat_failed", err, map[string]interface{}{
			"object_key": key,
			"bucket":     m.bucket,
		})
		return nil, nil, err
	}

	return obj, &ObjectInfo{
		ContentType:  stat.ContentType,
		Size:         stat.Size,
		LastModified: stat.LastModified,
	}, nil
}

// Copy duplicates src to dst within the bucket. Used by file renames,
// where the object key embeds the filename.
func (m *ObjectClient) Copy(ctx context.Context, src, dst string) error {
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.bucket, Object: dst},
		minio.CopySrcOptions{Bucket: m.bucket, Object: src},
	)
	if err != nil {
		logger.Error("object_copy_failed", err, map[string]interface{}{
			"source_key": src,
			"dest_key":   dst,
			"bucket":     m.bucket,
		})
	}
	return err
}

func (m *ObjectClient) Remove(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		logger.Error("object_delete_failed", err, map[string]interface{}{
			"object_key": key,
			"bucket":     m.bucket,
		})
	}
	return err
}

// RemoveAll deletes every key in the batch, reporting per-key failures
// instead of aborting on the first one.
func (m *ObjectClient) RemoveAll(ctx context.Context, keys []string) []KeyError {
	var failures []KeyError
	for _, key := range keys {
		if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			failures = append(failures, KeyError{Key: key, Err: err})
		}
	}
	if len(failures) > 0 {
		logger.Warn("object_batch_delete_partial_failure", map[string]interface{}{
			"requested": len(keys),
			"failed":    len(failures),
			"bucket":    m.bucket,
		})
	}
	return failures
}

// RemoveByPrefix deletes every object under prefix. Used when a whole
// document space is torn down.
func (m *ObjectClient) RemoveByPrefix(ctx context.Context, prefix string) []KeyError {
	var failures []KeyError
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			failures = append(failures, KeyError{Key: prefix, Err: obj.Err})
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			failures = append(failures, KeyError{Key: obj.Key, Err: err})
		}
	}
	return failures
}

// DownloadAndZip streams the given objects into w as a zip archive,
// entry by entry, without buffering the whole archive.
func (m *ObjectClient) DownloadAndZip(ctx context.Context, entries []ObjectKeyEntry, w io.Writer) error {
	return WriteZip(ctx, m.fetch, entries, w)
}

func (m *ObjectClient) fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}
