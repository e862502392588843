package receipts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStorage is the implementation of Storage backed by Google Cloud Storage.
// It holds a shared client for the lifetime of the service.
type GCSStorage struct {
	client  *storage.Client
	bucket  string
	prefix  string
	baseURL string
}

// NewGCSStorage creates a storage client for the bucket. Objects are written
// under prefix. When baseURL is empty, public storage.googleapis.com URLs
// are returned.
// It assumes Application Default Credentials are configured.
func NewGCSStorage(ctx context.Context, bucket, prefix, baseURL string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, errors.New("NewGCSStorage: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorage: create storage client: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Trim(prefix, "/"))
	}
	return &GCSStorage{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Close closes the storage client.
func (s *GCSStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *GCSStorage) objectPath(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads the receipt to the bucket.
func (s *GCSStorage) Put(ctx context.Context, name string, u Upload) error {
	contentType, body, err := sniff(u)
	if err != nil {
		return fmt.Errorf("Put: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.objectPath(name)).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"original_filename": u.FileName}

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("Put: copy receipt to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("Put: finalize upload: %w", err)
	}
	return nil
}

// Open reads a receipt back from the bucket.
func (s *GCSStorage) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.objectPath(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", fmt.Errorf("Open: %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("Open: open GCS object reader: %w", err)
	}
	return r, r.Attrs.ContentType, nil
}

// URL returns the public address of the object.
func (s *GCSStorage) URL(name string) string {
	return s.baseURL + "/" + name
}

var _ Storage = (*GCSStorage)(nil)
