package blob

import (
	"casefile/internal/infra/blob/fs"
)

// NewFilesystem opens the filesystem payload store rooted at root, creating
// the directory when needed.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
