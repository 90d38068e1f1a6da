package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	storagetesting "github.com/marmos91/larder/pkg/storage/testing"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(context.Background(), Config{Root: t.TempDir()})
	require.NoError(t, err, "Failed to create filesystem backend")
	return b
}

// TestFSBackend runs the complete Backend test suite against the filesystem
// implementation.
func TestFSBackend(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			return newTestBackend(t)
		},
		SupportsFileAndDirectory: false,
	}

	suite.Run(t)
}

// TestFSBackend_MemMapFs runs the suite over afero's in-memory filesystem.
func TestFSBackend_MemMapFs(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			b, err := New(context.Background(), Config{Root: "/larder", Fs: afero.NewMemMapFs()})
			require.NoError(t, err)
			return b
		},
	}

	suite.Run(t)
}

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	b, err := New(context.Background(), Config{Root: root})
	require.NoError(t, err)

	info, err := os.Stat(b.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_WritesUnderRoot(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.Store(context.Background(), path.New("/db/password"), "secret"))

	data, err := os.ReadFile(filepath.Join(b.Root(), "db", "password"))
	require.NoError(t, err)
	assert.Equal(t, "secret", string(data))

	info, err := os.Stat(filepath.Join(b.Root(), "db", "password"))
	require.NoError(t, err)
	assert.Equal(t, DefaultFileMode, info.Mode().Perm())
}

func TestStore_RelativePathClampedUnderRoot(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.Store(context.Background(), path.New("../../escape"), "x"))

	_, err := os.Stat(filepath.Join(b.Root(), "escape"))
	assert.NoError(t, err)
}

func TestStore_BelowFileFails(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, b.Store(ctx, path.New("/node"), "file"))

	err := b.Store(ctx, path.New("/node/child"), "x")

	assert.ErrorIs(t, err, storage.StoreFailed)
	assert.True(t, storage.IsIOError(err))
}

func TestStore_AtDirectoryFails(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, b.Store(ctx, path.New("/dir/child"), "x"))

	err := b.Store(ctx, path.New("/dir"), "x")

	assert.ErrorIs(t, err, storage.StoreFailed)
}

func TestRetrieve_BelowFileDoesNotExist(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, b.Store(ctx, path.New("/node"), "file"))

	_, err := b.Retrieve(ctx, path.New("/node/child"))

	assert.ErrorIs(t, err, storage.PathDoesNotExist)
}

func TestRemove_PrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, b.Store(ctx, path.New("/a/b/c"), "x"))

	require.NoError(t, b.Remove(ctx, path.New("/a/b/c")))

	_, err := os.Stat(filepath.Join(b.Root(), "a"))
	assert.True(t, os.IsNotExist(err))

	_, err = b.Retrieve(ctx, path.New("/a"))
	assert.ErrorIs(t, err, storage.PathDoesNotExist)
}

func TestEmptyDirectory_TreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	require.NoError(t, os.MkdirAll(filepath.Join(b.Root(), "empty"), 0700))

	_, err := b.Retrieve(ctx, path.New("/empty"))
	assert.ErrorIs(t, err, storage.PathDoesNotExist)

	err = b.Remove(ctx, path.New("/empty"))
	assert.ErrorIs(t, err, storage.PathDoesNotExist)
}

func TestRoot(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	_, err := b.Retrieve(ctx, path.Root)
	assert.ErrorIs(t, err, storage.PathDoesNotExist)

	require.NoError(t, b.Store(ctx, path.New("/a"), "1"))
	require.NoError(t, b.Store(ctx, path.New("/b/c"), "2"))

	_, err = b.Retrieve(ctx, path.Root)
	assert.ErrorIs(t, err, storage.PathIsDirectory)

	require.NoError(t, b.Remove(ctx, path.Root))

	entries, err := os.ReadDir(b.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
