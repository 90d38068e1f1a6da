package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/larder/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunErrorTests executes error taxonomy tests.
func (suite *StoreTestSuite) RunErrorTests(t *testing.T) {
	t.Run("Retrieve_NotFound", suite.testRetrieveNotFound)
	t.Run("Remove_NotFound", suite.testRemoveNotFound)
	t.Run("Remove_NotFoundLeavesContents", suite.testRemoveNotFoundLeavesContents)
	t.Run("Error_CarriesPath", suite.testErrorCarriesPath)
	t.Run("Context_Cancelled", suite.testContextCancelled)
}

func (suite *StoreTestSuite) testRetrieveNotFound(t *testing.T) {
	backend := suite.NewBackend(t)

	assertDoesNotExist(t, backend, "/nonexistent")
}

func (suite *StoreTestSuite) testRemoveNotFound(t *testing.T) {
	backend := suite.NewBackend(t)

	err := backend.Remove(testContext(), p("/nonexistent"))

	AssertErrorIs(t, storage.PathDoesNotExist, err)
}

func (suite *StoreTestSuite) testRemoveNotFoundLeavesContents(t *testing.T) {
	backend := suite.NewBackend(t)
	mustStore(t, backend, "/kept/a", "1")

	err := backend.Remove(testContext(), p("/missing"))

	AssertErrorIs(t, storage.PathDoesNotExist, err)
	assertContentEquals(t, backend, "/kept/a", "1")
}

func (suite *StoreTestSuite) testErrorCarriesPath(t *testing.T) {
	backend := suite.NewBackend(t)

	_, err := backend.Retrieve(testContext(), p("/missing/thing"))
	require.Error(t, err)

	var se *storage.StorageError
	require.True(t, errors.As(err, &se), "expected *storage.StorageError, got %T", err)
	assert.Equal(t, storage.ErrPathDoesNotExist, se.Code)
	assert.Equal(t, p("/missing/thing"), se.Path)
}

func (suite *StoreTestSuite) testContextCancelled(t *testing.T) {
	backend := suite.NewBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := backend.Store(ctx, p("/a"), "x")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = backend.Retrieve(ctx, p("/a"))
	assert.ErrorIs(t, err, context.Canceled)

	err = backend.Remove(ctx, p("/a"))
	assert.ErrorIs(t, err, context.Canceled)
}
