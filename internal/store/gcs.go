package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcsstorage "cloud.google.com/go/storage"
)

// GCSStore implements Store with one Cloud Storage object per key.
type GCSStore struct {
	bucket *gcsstorage.BucketHandle
	prefix string
}

// NewGCSStore stores keys as objects named prefix+key in bucket.
func NewGCSStore(bucket *gcsstorage.BucketHandle, prefix string) *GCSStore {
	return &GCSStore{bucket: bucket, prefix: prefix}
}

func (s *GCSStore) object(key string) *gcsstorage.ObjectHandle {
	return s.bucket.Object(s.prefix + key)
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := s.object(key).NewReader(ctx)
	if errors.Is(err, gcsstorage.ErrObjectNotExist) {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func (s *GCSStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := s.object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %q: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcsstorage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}
