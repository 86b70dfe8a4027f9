package storage

import (
	"bytes"
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"io"
	"time"
)

type blobRepository interface {
	Save(ctx context.Context, blob *entities.Blob) error
	Load(ctx context.Context, bucket, key string) (*entities.Blob, error)
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
	Remove(ctx context.Context, bucket string, keys ...string) error
}

// DBStore keeps objects in the blobs table. It is the default backend for
// local runs and tests.
type DBStore struct {
	blobs blobRepository
}

func NewDBStore(blobs blobRepository) *DBStore {
	return &DBStore{blobs: blobs}
}

func (s *DBStore) Upload(ctx context.Context, bucket, key string, content io.Reader, contentType string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	return s.blobs.Save(ctx, &entities.Blob{
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Content:     data,
		CreatedAt:   time.Now().UTC(),
	})
}

func (s *DBStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	blob, err := s.blobs.Load(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(blob.Content)), nil
}

func (s *DBStore) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	return s.blobs.ListKeys(ctx, bucket, prefix)
}

func (s *DBStore) Delete(ctx context.Context, bucket string, keys ...string) error {
	return s.blobs.Remove(ctx, bucket, keys...)
}
