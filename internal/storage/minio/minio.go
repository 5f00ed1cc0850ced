package minio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/picstash/media-service/internal/config"
	"github.com/picstash/media-service/internal/storage"
)

// Store implements storage.ObjectStore on a MinIO (or any S3-compatible)
// backend.
type Store struct {
	client     *minio.Client
	bucketName string
}

// NewStore creates the MinIO client and ensures the configured bucket exists.
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &Store{
		client:     client,
		bucketName: cfg.MinIO.BucketName,
	}

	if err := store.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (s *Store) ensureBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Put streams r to the backend under key with the given user metadata.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return &storage.WriteError{Key: key, Err: err}
	}
	return nil
}

// ListByPrefix returns all object keys under prefix in listing order.
func (s *Store) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	objectsCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for object := range objectsCh {
		if object.Err != nil {
			return nil, &storage.ReadError{Key: prefix, Err: object.Err}
		}
		keys = append(keys, object.Key)
	}

	return keys, nil
}

// Head fetches last-modified time and user metadata for the object at key.
// Metadata keys come back canonicalized by the HTTP transport
// (e.g. "Tag_zero"), so they are lowercased before returning.
func (s *Store) Head(ctx context.Context, key string) (storage.ObjectMeta, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectMeta{}, &storage.ReadError{Key: key, Err: err}
	}

	return storage.ObjectMeta{
		LastModified: info.LastModified,
		Metadata:     normalizeMetadata(info.UserMetadata),
	}, nil
}

// SignURL generates a presigned GET URL for the object at key.
func (s *Store) SignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	signedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, key, expiry, nil)
	if err != nil {
		return "", &storage.ReadError{Key: key, Err: err}
	}
	return signedURL.String(), nil
}

func normalizeMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
