//go:build windows

package collab

import (
	"os"

	"github.com/hpungsan/frag/internal/errors"
)

// openFileNoFollow opens path for writing. Windows has no O_NOFOLLOW; the
// Lstat checks in ValidateExportPath and DirWriter run before this.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a picked source for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return f, nil
}
