package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	storagetesting "github.com/marmos91/larder/pkg/storage/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryBackend runs the complete Backend test suite against the
// in-memory implementation.
func TestMemoryBackend(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			return New()
		},
		SupportsFileAndDirectory: true,
	}

	suite.Run(t)
}

func TestNew_NormalizesInitialContents(t *testing.T) {
	b := New(WithContents(map[string]string{
		"path/to/../a": "1",
		"/b//c/":       "2",
	}))

	assert.Equal(t, []path.Path{path.New("/b/c"), path.New("/path/a")}, b.Paths())
	assert.Equal(t, 2, b.Len())
}

func TestNew_ManagerAppliedBeforeContents(t *testing.T) {
	// Option order must not matter.
	b := New(
		WithContents(map[string]string{"x/y": "v", "/abs": "w"}),
		WithManager(path.NewManager("/base")),
	)

	assert.Equal(t, []path.Path{path.New("/abs"), path.New("/base/x/y")}, b.Paths())
}

func TestBackend_RelativeInputUsesManager(t *testing.T) {
	ctx := context.Background()
	b := New(WithManager(path.NewManager("/base")))

	require.NoError(t, b.Store(ctx, path.New("x"), "v"))

	content, err := b.Retrieve(ctx, path.New("/base/x"))
	require.NoError(t, err)
	assert.Equal(t, "v", content)
}

func TestRetrieve_RootIsDirectory(t *testing.T) {
	ctx := context.Background()
	b := New(WithContents(map[string]string{"/a": "1"}))

	_, err := b.Retrieve(ctx, path.Root)

	assert.ErrorIs(t, err, storage.PathIsDirectory)
}

func TestRetrieve_RootOnEmptyStore(t *testing.T) {
	_, err := New().Retrieve(context.Background(), path.Root)

	assert.ErrorIs(t, err, storage.PathDoesNotExist)
}

func TestRemove_RootClearsStore(t *testing.T) {
	ctx := context.Background()
	b := New(WithContents(map[string]string{"/a": "1", "/b/c": "2"}))

	require.NoError(t, b.Remove(ctx, path.Root))

	assert.Equal(t, 0, b.Len())
}

func TestRemove_EmptyStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	b := New(WithContents(map[string]string{"/kept": "1"}))

	err := b.Remove(ctx, path.New("/missing"))

	assert.ErrorIs(t, err, storage.PathDoesNotExist)
	assert.Equal(t, []path.Path{path.New("/kept")}, b.Paths())
}

func TestRetrieve_DirectoryWinsOverContent(t *testing.T) {
	ctx := context.Background()
	b := New(WithContents(map[string]string{
		"/node":       "file",
		"/node/child": "child",
	}))

	_, err := b.Retrieve(ctx, path.New("/node"))

	require.Error(t, err)
	assert.True(t, storage.IsPathIsDirectory(err))
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	b := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := path.New(fmt.Sprintf("/dir/%d", i))
			assert.NoError(t, b.Store(ctx, p, "v"))
			_, err := b.Retrieve(ctx, p)
			assert.NoError(t, err)
			_, err = b.Retrieve(ctx, path.New("/dir"))
			assert.ErrorIs(t, err, storage.PathIsDirectory)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())

	require.NoError(t, b.Remove(ctx, path.New("/dir")))
	assert.Equal(t, 0, b.Len())
}
