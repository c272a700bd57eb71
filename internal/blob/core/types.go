// Package core declares the storage contract shared by the evidence payload
// drivers. Callers go through the blob facade; the drivers under
// internal/infra/blob implement Store against a filesystem, an S3-compatible
// bucket, or process memory.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a payload storage backend.
type Driver string

const (
	// DriverFilesystem stores payloads under a local directory tree.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores payloads in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps payloads in process memory, for tests.
	DriverMemory Driver = "memory"
)

// PutOptions carries optional attributes recorded alongside a payload.
type PutOptions struct {
	ContentType string            // MIME type, reported back on Get and Head
	Metadata    map[string]string // flat key-value annotations, kept small
}

// SignedURLOptions shapes a pre-signed download link.
type SignedURLOptions struct {
	Method string        // only GET is supported
	Expiry time.Duration // zero means 15 minutes
}

// Info describes a stored payload.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ETag         string            `json:"etag,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	URL          string            `json:"url,omitempty"`
}

// Store is the driver contract. Put is create-only: payloads are immutable
// once stored, and writing a key that already exists fails. Drivers without
// pre-signed URL support return ErrUnsupported from PresignURL.
type Store interface {
	Driver() Driver
	Head(ctx context.Context, key string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
}

// ErrUnsupported is returned when a driver lacks an optional capability.
var ErrUnsupported = errors.New("blob: unsupported operation")
