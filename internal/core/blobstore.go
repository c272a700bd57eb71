package core

import (
	blobcore "casefile/internal/blob/core"
)

// BlobStore is the object storage contract backing evidence payloads and
// report artifacts. The concrete driver (filesystem, S3, memory) is chosen
// by the caller wiring the service.
type BlobStore = blobcore.Store

// BlobInfo describes a stored object.
type BlobInfo = blobcore.Info

// BlobPutOptions carries content metadata for blob writes.
type BlobPutOptions = blobcore.PutOptions

// BlobSignedURLOptions configures presigned URL generation.
type BlobSignedURLOptions = blobcore.SignedURLOptions

// ErrBlobUnsupported is returned by blob drivers for capabilities they do
// not implement, such as presigned URLs on the filesystem driver.
var ErrBlobUnsupported = blobcore.ErrUnsupported
