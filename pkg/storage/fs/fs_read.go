package fs

import (
	"context"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/spf13/afero"
)

// Retrieve returns the content stored at p.
//
// Parameters:
//   - ctx: Context for cancellation
//   - p: Path to read
//
// Returns:
//   - string: File content
//   - error: PathIsDirectory for a non-empty directory, PathDoesNotExist when
//     nothing is there, RetrieveError wrapping other OS errors, or context
//     errors
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	filePath := b.filePath(p)

	info, err := b.fs.Stat(filePath)
	if err != nil {
		if isNotExist(err) {
			return "", storage.NewPathDoesNotExistError(p)
		}
		return "", storage.NewRetrieveError(p, err)
	}

	if info.IsDir() {
		empty, err := b.isEmptyDir(filePath)
		if err != nil {
			return "", storage.NewRetrieveError(p, err)
		}
		if empty {
			return "", storage.NewPathDoesNotExistError(p)
		}
		return "", storage.NewPathIsDirectoryError(p)
	}

	data, err := afero.ReadFile(b.fs, filePath)
	if err != nil {
		if isNotExist(err) {
			return "", storage.NewPathDoesNotExistError(p)
		}
		return "", storage.NewRetrieveError(p, err)
	}

	return string(data), nil
}
