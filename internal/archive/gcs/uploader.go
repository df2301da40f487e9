// Package gcs uploads finished run artifacts to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ContentType is set on every uploaded result file.
const ContentType = "text/markdown; charset=utf-8"

// Config names the destination bucket and object prefix.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader copies local files into a bucket under <prefix>/<run_id>/.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
	owned  bool
}

// New wraps an existing storage client.
func New(client *storage.Client, cfg Config) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Dial creates a storage client with application default credentials and
// wraps it. Close releases the client.
func Dial(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Uploader, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	u, err := New(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	u.owned = true
	return u, nil
}

// ObjectName is the object path a local file is stored at for runID.
func (u *Uploader) ObjectName(runID, localPath string) string {
	parts := []string{runID, filepath.Base(localPath)}
	if u.prefix != "" {
		parts = append([]string{u.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Upload copies localPath to the bucket and returns its gs:// URI.
func (u *Uploader) Upload(ctx context.Context, localPath, runID string) (string, error) {
	if strings.TrimSpace(runID) == "" {
		return "", fmt.Errorf("run id is required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	name := u.ObjectName(runID, localPath)
	// Canceling the writer's context aborts the upload; Close would commit
	// whatever was copied so far.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	writer := u.client.Bucket(u.bucket).Object(name).NewWriter(wctx)
	writer.ContentType = ContentType
	if _, err := io.Copy(writer, f); err != nil {
		cancel()
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, name), nil
}

// Close releases the client when the uploader created it.
func (u *Uploader) Close() error {
	if !u.owned {
		return nil
	}
	return u.client.Close()
}
