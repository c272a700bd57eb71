package blob

import (
	"context"

	s3driver "casefile/internal/infra/blob/s3"
)

// S3Config aliases the driver configuration so callers stay off the driver package.
type S3Config = s3driver.Config

// NewS3 opens an S3-backed payload store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3driver.New(ctx, cfg)
}

// OpenFromEnv opens an S3 payload store from CASEFILE_BLOB_S3_* variables.
func OpenFromEnv(ctx context.Context) (Store, error) {
	return s3driver.OpenFromEnv(ctx)
}

// NewMockS3ForTests returns the network-free S3 store for cross-package tests.
func NewMockS3ForTests() Store { return s3driver.NewMockForTests() }
