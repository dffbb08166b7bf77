package evidence

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists inline evidence and reads back what it owns.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
	Owns(ref string) bool
}

// LocalStore keeps evidence on local disk and serves it under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	full := filepath.Join(l.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return l.BaseURL + "/" + name, nil
}

func (l *LocalStore) Owns(ref string) bool {
	return strings.HasPrefix(ref, l.BaseURL+"/")
}

func (l *LocalStore) path(ref string) (string, error) {
	if !l.Owns(ref) {
		return "", fmt.Errorf("reference %q is not local", ref)
	}
	rel := strings.TrimPrefix(ref, l.BaseURL+"/")
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("reference %q escapes upload directory", ref)
	}
	return filepath.Join(l.Dir, filepath.FromSlash(rel)), nil
}

func (l *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := l.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (l *LocalStore) Delete(ctx context.Context, ref string) error {
	p, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ErrForeign marks a reference that the configured store does not own.
var ErrForeign = errors.New("evidence reference is not owned by the evidence store")

// Resolver opens evidence references for reports. Only objects owned by the
// configured store are readable; anything else is refused without a request.
type Resolver struct {
	Store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{Store: store}
}

func (r *Resolver) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if r.Store == nil || !r.Store.Owns(ref) {
		return nil, fmt.Errorf("open %q: %w", ref, ErrForeign)
	}
	return r.Store.Open(ctx, ref)
}

// ReadAll opens ref and reads it fully, capped at max bytes.
func (r *Resolver) ReadAll(ctx context.Context, ref string, max int64) ([]byte, error) {
	rc, err := r.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(rc, max+1))
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, fmt.Errorf("evidence %s exceeds %d bytes", ref, max)
	}
	return buf.Bytes(), nil
}

// Batch persists the evidence of one submission and can undo its writes if
// the submission is rejected afterwards.
type Batch struct {
	store   Store
	prefix  string
	now     func() time.Time
	written []string
}

// NewBatch groups object names under prefix (usually the record id).
func NewBatch(store Store, prefix string) *Batch {
	return &Batch{store: store, prefix: prefix, now: time.Now}
}

// Resolve returns the reference for ev, writing inline bytes to the store.
func (b *Batch) Resolve(ctx context.Context, field string, ev Evidence) (string, error) {
	if ev.Kind == KindURL {
		return ev.URL, nil
	}
	if b.store == nil {
		return "", fmt.Errorf("no evidence store configured for inline %s", field)
	}
	name := fmt.Sprintf("%s/%s-%s-%s%s", b.prefix, field, b.now().Format("20060102-150405"), randomSuffix(), extensionFor(ev.MIME))
	ref, err := b.store.Put(ctx, name, ev.MIME, ev.Data)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", field, err)
	}
	b.written = append(b.written, ref)
	return ref, nil
}

// Written lists references created by this batch.
func (b *Batch) Written() []string {
	return b.written
}

// Rollback removes everything the batch wrote. Errors are returned joined
// into one message but every object is attempted.
func (b *Batch) Rollback(ctx context.Context) error {
	var failed []string
	for _, ref := range b.written {
		if err := b.store.Delete(ctx, ref); err != nil {
			failed = append(failed, ref+": "+err.Error())
		}
	}
	b.written = nil
	if len(failed) > 0 {
		return fmt.Errorf("rollback evidence: %s", strings.Join(failed, "; "))
	}
	return nil
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
	}
	return hex.EncodeToString(buf)
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	}
	return ".bin"
}
