package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	storagetesting "github.com/marmos91/larder/pkg/storage/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, prefix string) (*Backend, *fakeClient) {
	t.Helper()
	fake := newFakeClient()
	b, err := New(context.Background(), Config{Client: fake, KeyPrefix: prefix})
	require.NoError(t, err, "Failed to create redis backend")
	return b, fake
}

// TestRedisBackend runs the complete Backend test suite against the Redis
// implementation over an in-process keyspace.
func TestRedisBackend(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewBackend: func(t *testing.T) storage.Backend {
			b, _ := newTestBackend(t, "larder:")
			return b
		},
		SupportsFileAndDirectory: true,
	}

	suite.Run(t)
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestStore_KeyLayout(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBackend(t, "larder:")

	require.NoError(t, b.Store(ctx, path.New("/secrets/db"), "x"))
	require.NoError(t, b.Store(ctx, path.New("relative"), "y"))

	assert.Equal(t, []string{"larder:/relative", "larder:/secrets/db"}, fake.keys())
}

func TestRemove_SingleDel(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBackend(t, "")

	// More keys than one SCAN page
	for i := 0; i < 250; i++ {
		require.NoError(t, b.Store(ctx, path.New(fmt.Sprintf("/dir/%03d", i)), "v"))
	}
	require.NoError(t, b.Store(ctx, path.New("/dirx"), "kept"))

	require.NoError(t, b.Remove(ctx, path.New("/dir")))

	assert.Equal(t, 1, fake.delCalls)
	assert.Equal(t, []string{"/dirx"}, fake.keys())
}

func TestGlobMetacharactersAreLiteral(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBackend(t, "")

	require.NoError(t, b.Store(ctx, path.New("/a*/x"), "1"))
	require.NoError(t, b.Store(ctx, path.New("/ab/x"), "2"))

	_, err := b.Retrieve(ctx, path.New("/a*"))
	assert.ErrorIs(t, err, storage.PathIsDirectory)

	require.NoError(t, b.Remove(ctx, path.New("/a*")))

	content, err := b.Retrieve(ctx, path.New("/ab/x"))
	require.NoError(t, err)
	assert.Equal(t, "2", content)
}

func TestRetrieve_ClientErrorIsRetrieveError(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBackend(t, "")
	require.NoError(t, b.Store(ctx, path.New("/a"), "v"))
	cause := errors.New("connection refused")
	fake.failGet = cause

	_, err := b.Retrieve(ctx, path.New("/a"))

	assert.ErrorIs(t, err, storage.RetrieveFailed)
	assert.ErrorIs(t, err, cause)
}

func TestRoot(t *testing.T) {
	ctx := context.Background()
	b, fake := newTestBackend(t, "")

	_, err := b.Retrieve(ctx, path.Root)
	assert.ErrorIs(t, err, storage.PathDoesNotExist)

	require.NoError(t, b.Store(ctx, path.New("/a"), "1"))
	require.NoError(t, b.Store(ctx, path.New("/b/c"), "2"))

	_, err = b.Retrieve(ctx, path.Root)
	assert.ErrorIs(t, err, storage.PathIsDirectory)

	require.NoError(t, b.Remove(ctx, path.Root))
	assert.Empty(t, fake.keys())
}

func TestClose_OnlyOwnedClient(t *testing.T) {
	b, fake := newTestBackend(t, "")

	require.NoError(t, b.Close())
	assert.False(t, fake.closed)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `/a\*\?\[b\]\\/`, escapeGlob(`/a*?[b]\/`))
	assert.Equal(t, "/plain/", escapeGlob("/plain/"))
}
