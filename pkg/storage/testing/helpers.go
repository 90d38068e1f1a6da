package testing

import (
	"errors"
	"testing"

	"github.com/marmos91/larder/pkg/path"
	"github.com/marmos91/larder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks if the error matches the expected error using errors.Is.
func AssertErrorIs(t *testing.T, expected error, actual error) {
	t.Helper()
	if !errors.Is(actual, expected) {
		t.Errorf("Expected error %v, got %v", expected, actual)
	}
}

// p builds a resolved test path.
func p(raw string) path.Path {
	return path.New(raw)
}

// mustStore stores content and fails the test if it errors.
func mustStore(t *testing.T, backend storage.Backend, raw string, content string) {
	t.Helper()
	err := backend.Store(testContext(), p(raw), content)
	require.NoError(t, err, "Store should succeed")
}

// mustRemove removes a path and fails the test if it errors.
func mustRemove(t *testing.T, backend storage.Backend, raw string) {
	t.Helper()
	err := backend.Remove(testContext(), p(raw))
	require.NoError(t, err, "Remove should succeed")
}

// assertContentEquals checks the content retrieved at raw.
func assertContentEquals(t *testing.T, backend storage.Backend, raw string, expected string) {
	t.Helper()
	actual, err := backend.Retrieve(testContext(), p(raw))
	require.NoError(t, err, "Retrieve should succeed for %s", raw)
	assert.Equal(t, expected, actual, "Content mismatch at %s", raw)
}

// assertDoesNotExist checks that retrieving raw fails with PathDoesNotExist.
func assertDoesNotExist(t *testing.T, backend storage.Backend, raw string) {
	t.Helper()
	_, err := backend.Retrieve(testContext(), p(raw))
	AssertErrorIs(t, storage.PathDoesNotExist, err)
}

// assertIsDirectory checks that retrieving raw fails with PathIsDirectory.
func assertIsDirectory(t *testing.T, backend storage.Backend, raw string) {
	t.Helper()
	_, err := backend.Retrieve(testContext(), p(raw))
	AssertErrorIs(t, storage.PathIsDirectory, err)
	assert.False(t, storage.IsPathDoesNotExist(err), "directory must not be reported as missing")
}
