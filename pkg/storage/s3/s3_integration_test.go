//go:build integration
// +build integration

package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/larder/pkg/storage"
	storagetesting "github.com/marmos91/larder/pkg/storage/testing"
)

// TestS3Backend_Integration runs the complete Backend test suite against a
// real S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./pkg/storage/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Backend_Integration(t *testing.T) {
	ctx := context.Background()

	// ========================================================================
	// Setup: Create S3 client connected to Localstack
	// ========================================================================

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			"test", // AccessKeyID
			"test", // SecretAccessKey
			"",     // SessionToken
		)),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true // Required for Localstack
	})

	// ========================================================================
	// Setup: Create test bucket
	// ========================================================================

	bucketName := fmt.Sprintf("larder-test-%d", time.Now().UnixNano())

	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucketName),
	})
	if err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	// Each test gets a fresh key prefix so they don't see each other's objects
	var counter int
	suite := &storagetesting.StoreTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			counter++
			b, err := New(ctx, Config{
				Client:    client,
				Bucket:    bucketName,
				KeyPrefix: fmt.Sprintf("test-%d/", counter),
			})
			if err != nil {
				t.Fatalf("Failed to create S3 backend: %v", err)
			}
			return b
		},
		SupportsFileAndDirectory: true,
	}

	suite.Run(t)
}
