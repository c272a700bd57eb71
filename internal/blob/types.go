// Package blob is the facade over the evidence payload drivers. It re-exports
// the contract types so the rest of the module never imports driver packages.
package blob

import (
	"casefile/internal/blob/core"
)

type (
	// Driver names a payload storage backend.
	Driver = core.Driver
	// PutOptions carries optional attributes for a payload write.
	PutOptions = core.PutOptions
	// SignedURLOptions shapes a pre-signed download link.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored payload.
	Info = core.Info
	// Store is the payload storage contract.
	Store = core.Store
)

const (
	// DriverFilesystem stores payloads under a local directory tree.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 stores payloads in an S3 or MinIO bucket.
	DriverS3 = core.DriverS3
	// DriverMemory keeps payloads in process memory, for tests.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported is returned when a driver lacks an optional capability.
var ErrUnsupported = core.ErrUnsupported
