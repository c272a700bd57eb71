package blob

import (
	"cmp"
	"context"
	"fmt"
	"os"
)

// Open picks the payload store driver from the environment.
//
//	CASEFILE_BLOB_DRIVER: fs|s3|memory (default fs)
//	CASEFILE_BLOB_FS_ROOT: directory root when driver=fs (default ./evidence-data)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (Store, error) {
	driver := Driver(cmp.Or(os.Getenv("CASEFILE_BLOB_DRIVER"), string(DriverFilesystem)))
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("CASEFILE_BLOB_FS_ROOT"))
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("blob: unknown driver %q", driver)
	}
}
