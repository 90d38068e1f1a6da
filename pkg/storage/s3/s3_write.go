package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// maxDeleteBatchSize is the S3 limit on objects per DeleteObjects request.
const maxDeleteBatchSize = 1000

// ============================================================================
// storage.Backend Interface Implementation (mutations)
// ============================================================================

// Store uploads content as the object at p, replacing any existing object.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Target path
//   - content: Object body
//
// Returns:
//   - error: StoreError wrapping the SDK error, or context errors
func (b *Backend) Store(ctx context.Context, p path.Path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.objectKey(p)),
		Body:          strings.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return storage.NewStoreError(p, err)
	}

	logger.Debug("s3: stored %s (%d bytes)", p, len(content))
	return nil
}

// Remove deletes the object at p together with every object below it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - p: Path to remove
//
// Returns:
//   - error: PathDoesNotExist when nothing matches, RemoveError wrapping the
//     SDK error (including per-object delete failures), or context errors
func (b *Backend) Remove(ctx context.Context, p path.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = path.Root.Join(p)

	// ========================================================================
	// Step 1: Collect the object itself and every descendant
	// ========================================================================

	keys, err := b.listDescendantKeys(ctx, p)
	if err != nil {
		return storage.NewRemoveError(p, err)
	}

	exists, err := b.objectExists(ctx, p)
	if err != nil {
		return storage.NewRemoveError(p, err)
	}
	if exists {
		keys = append(keys, b.objectKey(p))
	}

	if len(keys) == 0 {
		return storage.NewPathDoesNotExistError(p)
	}

	// ========================================================================
	// Step 2: Delete in batches
	// ========================================================================

	if err := b.deleteKeys(ctx, keys); err != nil {
		return storage.NewRemoveError(p, err)
	}

	logger.Debug("s3: removed %s (%d objects)", p, len(keys))
	return nil
}

// listDescendantKeys returns every object key strictly below p.
func (b *Backend) listDescendantKeys(ctx context.Context, p path.Path) ([]string, error) {
	own := b.objectKey(p)

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.childPrefix(p)),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == own {
				continue
			}
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// deleteKeys removes keys with DeleteObjects, at most maxDeleteBatchSize per
// request.
func (b *Backend) deleteKeys(ctx context.Context, keys []string) error {
	for i := 0; i < len(keys); i += maxDeleteBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(i+maxDeleteBatchSize, len(keys))
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{
				Key: aws.String(key),
			}
		}

		result, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}

		// Quiet mode only reports failures
		if len(result.Errors) > 0 {
			first := result.Errors[0]
			return fmt.Errorf("failed to delete %d objects (first %s: %s: %s)",
				len(result.Errors), aws.ToString(first.Key),
				aws.ToString(first.Code), aws.ToString(first.Message))
		}
	}

	return nil
}
