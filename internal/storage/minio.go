package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioStore implements ObjectStore on a MinIO (or any S3-compatible)
// server.
type MinioStore struct {
	client *minio.Client
}

// NewMinioStore connects to the object store. Endpoint is host:port
// without a scheme; the deployment runs MinIO without TLS.
func NewMinioStore(endpoint, accessKey, secretKey string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioStore{client: client}, nil
}

// Fetch downloads one object in full.
func (s *MinioStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, fmt.Errorf("fetch %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Store uploads one object in a single put with a known length, so a
// concurrent reader sees either the previous content or the new content,
// never a partial write.
func (s *MinioStore) Store(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("store %s/%s: %w", bucket, key, err)
	}
	log.Debug().
		Str("bucket", bucket).
		Str("object_key", key).
		Int("size", len(data)).
		Msg("Artifact stored")
	return nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	log.Info().Str("bucket", bucket).Msg("Bucket created")
	return nil
}
