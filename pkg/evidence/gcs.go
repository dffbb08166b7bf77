package evidence

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore keeps evidence in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore connects with application default credentials, or with the
// service-account file when credentialsFile is set.
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) publicPrefix() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/", g.bucket)
}

func (g *GCSStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", name, err)
	}
	return g.publicPrefix() + name, nil
}

func (g *GCSStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, g.publicPrefix()) || strings.HasPrefix(ref, "gs://"+g.bucket+"/")
}

func (g *GCSStore) objectName(ref string) string {
	if strings.HasPrefix(ref, "gs://") {
		return strings.TrimPrefix(ref, "gs://"+g.bucket+"/")
	}
	return strings.TrimPrefix(ref, g.publicPrefix())
}

func (g *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !g.Owns(ref) {
		return nil, fmt.Errorf("reference %q is not in bucket %s", ref, g.bucket)
	}
	return g.client.Bucket(g.bucket).Object(g.objectName(ref)).NewReader(ctx)
}

func (g *GCSStore) Delete(ctx context.Context, ref string) error {
	if !g.Owns(ref) {
		return fmt.Errorf("reference %q is not in bucket %s", ref, g.bucket)
	}
	err := g.client.Bucket(g.bucket).Object(g.objectName(ref)).Delete(ctx)
	if err == storage.ErrObjectNotExist {
		return nil
	}
	return err
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
