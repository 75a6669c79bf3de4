package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// gcsUploadTimeout bounds a single object upload
const gcsUploadTimeout = 2 * time.Minute

// GCSStorage implements FileStorage on a Google Cloud Storage bucket.
// Credentials come from Application Default Credentials.
type GCSStorage struct {
	client *gcs.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// NewGCSStorage creates a GCS client for bucket. Objects are written under prefix.
func NewGCSStorage(ctx context.Context, bucket, prefix string, logger *zap.Logger) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

// Save implements FileStorage
func (s *GCSStorage) Save(ctx context.Context, name string, content []byte, fileType FileType) (string, error) {
	object, err := s.ObjectName(name)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, gcsUploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = fileType.ContentType()

	if _, err := w.Write(content); err != nil {
		// cancelling the context aborts the upload
		cancel()
		_ = w.Close()
		s.logger.Error("Failed to upload object",
			zap.String("bucket", s.bucket),
			zap.String("object", object),
			zap.Error(err))
		return "", fmt.Errorf("write object %s: %w", object, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize upload",
			zap.String("bucket", s.bucket),
			zap.String("object", object),
			zap.Error(err))
		return "", fmt.Errorf("finalize upload %s: %w", object, err)
	}

	location := s.URI(object)
	s.logger.Debug("Object uploaded", zap.String("uri", location), zap.Int("size", len(content)))
	return location, nil
}

// ObjectName maps a storage name to the object name inside the bucket
func (s *GCSStorage) ObjectName(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return clean, nil
	}
	return path.Join(s.prefix, clean), nil
}

// URI returns the gs:// URI of an object
func (s *GCSStorage) URI(object string) string {
	return "gs://" + s.bucket + "/" + object
}

// Close releases the underlying client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}
