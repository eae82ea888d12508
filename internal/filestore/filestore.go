// Package filestore uploads board media to public buckets.
package filestore

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

const (
	BucketImages  = "parrilla-images"
	BucketAvatars = "avatars"
)

var ErrObjectExists = errors.New("object already exists")

type Storage interface {
	// Upload stores r at bucket/path and returns its public URL. Without upsert an
	// existing object is an error.
	Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string, upsert bool) (string, error)
	Remove(ctx context.Context, bucket string, paths ...string) error
	PublicURL(bucket, path string) string
}

// PathFromURL returns the object path of a public URL that lies in bucket.
func PathFromURL(bucket, url string) (string, bool) {
	_, rest, ok := strings.Cut(url, bucket+"/")
	if !ok || rest == "" {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}

// Ext returns the lowercase extension of name without the dot, or def when absent.
func Ext(name, def string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return def
	}
	return ext
}

func ContentType(name string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return t
	}
	return "application/octet-stream"
}

func cleanPath(p string) (string, error) {
	p = strings.TrimLeft(filepath.ToSlash(strings.TrimSpace(p)), "/")
	if p == "" {
		return "", errors.New("empty object path")
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", errors.New("object path escapes bucket")
		}
	}
	return p, nil
}
