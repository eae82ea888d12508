package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps objects under <dir>/<bucket>/<path>.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal uses baseURL as the public prefix, or file://<dir> when empty.
func NewLocal(dir, baseURL string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	return &Local{dir: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) PublicURL(bucket, path string) string {
	return l.baseURL + "/" + bucket + "/" + path
}

func (l *Local) objectPath(bucket, path string) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(bucket, `/\`) || bucket == "" || bucket == ".." {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	return filepath.Join(l.dir, bucket, filepath.FromSlash(p)), nil
}

func (l *Local) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string, upsert bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.objectPath(bucket, path)
	if err != nil {
		return "", err
	}
	if !upsert {
		if _, err := os.Stat(dst); err == nil {
			return "", fmt.Errorf("%s/%s: %w", bucket, path, ErrObjectExists)
		}
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, ".upload.*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return l.PublicURL(bucket, filepath.ToSlash(strings.TrimLeft(path, "/"))), nil
}

func (l *Local) Remove(ctx context.Context, bucket string, paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := l.objectPath(bucket, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
