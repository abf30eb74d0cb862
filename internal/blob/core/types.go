// Package core defines the abstractions shared by the evidence blob storage
// backends.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend.
type Driver string

const (
	// DriverFilesystem stores blobs under a local directory root.
	DriverFilesystem Driver = "fs"
	// DriverS3 targets an S3 or MinIO compatible endpoint.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory, for tests.
	DriverMemory Driver = "memory"
)

// PutOptions carries optional attributes stored alongside a blob.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string // small flat key-value pairs
}

// SignedURLOptions parameterises pre-signed URL generation.
type SignedURLOptions struct {
	Method  string        // only GET is exercised internally
	Expiry  time.Duration // zero means 15 minutes
	Headers map[string]string
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is the thin S3-like surface the service consumes. Put fails when the
// key already exists, which keeps stored evidence immutable; Delete reports
// whether a blob was actually removed.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available on
// the configured driver.
var ErrUnsupported = errors.New("blobstore: unsupported operation")
