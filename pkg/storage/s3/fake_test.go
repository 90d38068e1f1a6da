package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-process S3 bucket implementing API. It models the parts
// of S3 the backend relies on: prefix listing in key order with
// continuation tokens, NoSuchKey/NotFound errors and batched deletes.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte

	// listPageSize caps keys per ListObjectsV2 page (S3 default is 1000)
	listPageSize int

	// deleteBatches records the size of each DeleteObjects request
	deleteBatches []int

	// failDelete makes DeleteObjects report a per-key failure for this key
	failDelete string

	// failGet makes GetObject fail with this error
	failGet error
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:       bucket,
		objects:      make(map[string][]byte),
		listPageSize: 1000,
	}
}

func (f *fakeS3) checkBucket(name *string) error {
	if aws.ToString(name) != f.bucket {
		return &types.NoSuchBucket{Message: aws.String("no such bucket")}
	}
	return nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet != nil {
		return nil, f.failGet
	}
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	if aws.ToString(in.Key) == "" {
		return nil, errors.New("object key must not be empty")
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}

	prefix := aws.ToString(in.Prefix)
	after := aws.ToString(in.ContinuationToken)

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	limit := f.listPageSize
	if in.MaxKeys != nil && int(*in.MaxKeys) < limit {
		limit = int(*in.MaxKeys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > limit {
		keys = keys[:limit]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	out.KeyCount = aws.Int32(int32(len(keys)))
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	if len(in.Delete.Objects) > maxDeleteBatchSize {
		return nil, fmt.Errorf("too many objects in one request: %d", len(in.Delete.Objects))
	}

	f.deleteBatches = append(f.deleteBatches, len(in.Delete.Objects))

	out := &s3.DeleteObjectsOutput{}
	for _, obj := range in.Delete.Objects {
		key := aws.ToString(obj.Key)
		if key == f.failDelete {
			out.Errors = append(out.Errors, types.Error{
				Key:     aws.String(key),
				Code:    aws.String("AccessDenied"),
				Message: aws.String("Access Denied"),
			})
			continue
		}
		delete(f.objects, key)
	}
	return out, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ API = (*fakeS3)(nil)
