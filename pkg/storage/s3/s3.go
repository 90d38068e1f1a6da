package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
)

// API is the subset of *s3.Client the backend calls. *s3.Client satisfies
// it; tests substitute an in-process fake.
type API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Backend implements storage.Backend using Amazon S3 or S3-compatible
// storage.
//
// Path-Based Key Design:
//   - Each stored path is one object
//   - Key format: KeyPrefix + path without the leading "/"
//     (e.g. "/secrets/db/password" → "larder/secrets/db/password")
//   - The bucket mirrors the secret hierarchy and is human-inspectable
//
// Directories are emulated by key prefixes exactly as S3 consoles do: a path
// is a directory iff at least one object key starts with "<key>/".
//
// S3 Characteristics:
//   - Remove of a large subtree is not atomic: objects are deleted in
//     batches of up to 1000 and a failure mid-way leaves later batches in
//     place
//   - Strong read-after-write consistency (AWS S3 since 2020)
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same path are last-write-wins.
type Backend struct {
	client    API
	bucket    string
	keyPrefix string
}

// Config contains configuration for the S3 backend.
type Config struct {
	// Client is the configured S3 client
	Client API

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "larder/" results in keys like "larder/secrets/db".
	KeyPrefix string
}

// New creates a new S3-based backend.
//
// The bucket must already exist; this function verifies access to it but
// does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *Backend: Initialized backend
//   - error: Returns error if configuration is invalid, bucket access fails
//     or context is cancelled
func New(ctx context.Context, cfg Config) (*Backend, error) {
	// ========================================================================
	// Step 1: Check context before S3 operations
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &Backend{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey returns the full S3 object key for p.
//
// Example:
//
//	Path:       "/secrets/db/password"
//	Key Prefix: "larder/"
//	S3 Key:     "larder/secrets/db/password"
func (b *Backend) objectKey(p path.Path) string {
	return b.keyPrefix + strings.TrimPrefix(path.Root.Join(p).String(), path.Separator)
}

// childPrefix returns the key prefix shared by every descendant of p.
// For the root this is the bare KeyPrefix.
func (b *Backend) childPrefix(p path.Path) string {
	return b.keyPrefix + strings.TrimPrefix(path.Root.Join(p).DirPrefix(), path.Separator)
}

var _ storage.Backend = (*Backend)(nil)
