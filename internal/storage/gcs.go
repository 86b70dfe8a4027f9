package storage

import (
	"cloud.google.com/go/storage"
	"context"
	"errors"
	"fmt"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"io"
)

type GCSStore struct {
	client  *storage.Client
	buckets map[string]string
}

// NewGCSStore maps logical bucket names to GCS bucket names. An empty
// credentialsFile uses application default credentials.
func NewGCSStore(ctx context.Context, buckets map[string]string, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud storage client: %w", err)
	}
	return &GCSStore{client: client, buckets: buckets}, nil
}

func (s *GCSStore) bucket(name string) (*storage.BucketHandle, error) {
	gcsName, ok := s.buckets[name]
	if !ok || gcsName == "" {
		return nil, fmt.Errorf("bucket %q is not configured", name)
	}
	return s.client.Bucket(gcsName), nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, key string, content io.Reader, contentType string) error {
	handle, err := s.bucket(bucket)
	if err != nil {
		return err
	}

	wc := handle.Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, content); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write data to object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close object writer: %w", err)
	}
	return nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	handle, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}

	reader, err := handle.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return reader, nil
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	handle, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}

	var keys []string
	it := handle.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *GCSStore) Delete(ctx context.Context, bucket string, keys ...string) error {
	handle, err := s.bucket(bucket)
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		if err := handle.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
