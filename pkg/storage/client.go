package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client abstracts the document blob store. The portal only ever touches
// blobs by (bucket, key); serving infrastructure decides where they live.
type Client interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error)
}

// filesystemClient stores blobs under a root directory, one subdirectory per
// bucket. Used for local and single-node deployments.
type filesystemClient struct {
	root      string
	publicURL string
}

func NewFilesystemClient(root, publicURL string) Client {
	return &filesystemClient{root: root, publicURL: strings.TrimRight(publicURL, "/")}
}

func (c *filesystemClient) path(bucket, key string) string {
	return filepath.Join(c.root, bucket, filepath.FromSlash(key))
}

func (c *filesystemClient) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	path := c.path(bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (c *filesystemClient) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f, err := os.Open(c.path(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (c *filesystemClient) Delete(ctx context.Context, bucket, key string) error {
	if err := os.Remove(c.path(bucket, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (c *filesystemClient) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return fmt.Sprintf("%s/files/%s/%s", c.publicURL, bucket, key), nil
}
