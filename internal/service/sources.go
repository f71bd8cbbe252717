package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockcover/internal/storage"
)

// Source is one spreadsheet handed to the service, either inline (Data) or as
// a reference: a local path, s3://bucket/key or drive://fileID.
type Source struct {
	Name string `json:"name,omitempty"`
	Ref  string `json:"ref,omitempty"`
	Data []byte `json:"-"`
}

func (s Source) label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Ref
}

// Fetcher resolves a source reference into the file name and its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (name string, data []byte, err error)
}

// SourceError means a source could not be fetched or decoded.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %q: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// LocalFetcher reads references from the local filesystem.
type LocalFetcher struct{}

func (LocalFetcher) Fetch(ctx context.Context, ref string) (string, []byte, error) {
	path := strings.TrimPrefix(ref, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(path), data, nil
}

// StorageFetcher reads s3:// references from object storage. The bucket in the
// reference must be the configured one.
type StorageFetcher struct {
	Storage storage.ObjectStorage
}

func (f StorageFetcher) Fetch(ctx context.Context, ref string) (string, []byte, error) {
	bucket, key, err := storage.ParseURL(ref)
	if err != nil {
		return "", nil, err
	}
	if bucket != f.Storage.Bucket() {
		return "", nil, fmt.Errorf("bucket %q is not configured (using %q)", bucket, f.Storage.Bucket())
	}
	data, err := f.Storage.GetObject(ctx, key)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(key), data, nil
}

func scheme(ref string) string {
	if i := strings.Index(ref, "://"); i > 0 {
		return strings.ToLower(ref[:i])
	}
	return "file"
}
