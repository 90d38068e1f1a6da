package s3

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// Retrieve downloads the object stored at p.
//
// The directory check runs first with a one-page listing, so a path with
// descendants is reported as PathIsDirectory even when an object also
// exists at its own key.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Path to read
//
// Returns:
//   - string: Object body
//   - error: PathIsDirectory, PathDoesNotExist, RetrieveError wrapping the
//     SDK error, or context errors
func (b *Backend) Retrieve(ctx context.Context, p path.Path) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p = path.Root.Join(p)

	// ========================================================================
	// Step 1: Directory check
	// ========================================================================

	isDir, err := b.hasDescendants(ctx, p)
	if err != nil {
		return "", storage.NewRetrieveError(p, err)
	}
	if isDir {
		return "", storage.NewPathIsDirectoryError(p)
	}

	// ========================================================================
	// Step 2: Download the object
	// ========================================================================

	key := b.objectKey(p)
	if key == "" {
		// The root without a key prefix has no object key of its own
		return "", storage.NewPathDoesNotExistError(p)
	}

	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", storage.NewPathDoesNotExistError(p)
		}
		return "", storage.NewRetrieveError(p, err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", storage.NewRetrieveError(p, err)
	}

	return string(data), nil
}

// hasDescendants reports whether any object key lies strictly below p.
//
// Two keys are requested because the root's child prefix (the bare
// KeyPrefix) also matches an object stored at the root itself.
func (b *Backend) hasDescendants(ctx context.Context, p path.Path) (bool, error) {
	own := b.objectKey(p)

	result, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.childPrefix(p)),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return false, err
	}

	for _, obj := range result.Contents {
		if aws.ToString(obj.Key) != own {
			return true, nil
		}
	}
	return false, nil
}

// objectExists checks for an object at exactly p's key.
func (b *Backend) objectExists(ctx context.Context, p path.Path) (bool, error) {
	key := b.objectKey(p)
	if key == "" {
		return false, nil
	}

	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isNotFound reports whether err is S3's missing-object error. GetObject
// returns NoSuchKey; HeadObject has no body and returns NotFound.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
