package testing

import (
	"strings"
	"testing"
)

// RunBasicTests executes the store/retrieve/remove round-trip tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("StoreRetrieve_RoundTrip", suite.testStoreRetrieveRoundTrip)
	t.Run("Store_Overwrite", suite.testStoreOverwrite)
	t.Run("Store_EmptyContent", suite.testStoreEmptyContent)
	t.Run("Store_LargeContent", suite.testStoreLargeContent)
	t.Run("Store_MultilineContent", suite.testStoreMultilineContent)
	t.Run("Remove_ThenRetrieve", suite.testRemoveThenRetrieve)
	t.Run("Remove_LeavesOthers", suite.testRemoveLeavesOthers)
}

// ============================================================================
// Store / Retrieve Tests
// ============================================================================

func (suite *StoreTestSuite) testStoreRetrieveRoundTrip(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/secrets/database/password", "supersecret")

	assertContentEquals(t, backend, "/secrets/database/password", "supersecret")
}

func (suite *StoreTestSuite) testStoreOverwrite(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/file", "first")
	mustStore(t, backend, "/path/to/file", "second")

	assertContentEquals(t, backend, "/path/to/file", "second")
}

func (suite *StoreTestSuite) testStoreEmptyContent(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/empty", "")

	assertContentEquals(t, backend, "/empty", "")
}

func (suite *StoreTestSuite) testStoreLargeContent(t *testing.T) {
	backend := suite.NewBackend(t)
	large := strings.Repeat("0123456789abcdef", 16*1024) // 256KB

	mustStore(t, backend, "/large", large)

	assertContentEquals(t, backend, "/large", large)
}

func (suite *StoreTestSuite) testStoreMultilineContent(t *testing.T) {
	backend := suite.NewBackend(t)
	content := "---\ndatabase_password: \"supersecret\"\n"

	mustStore(t, backend, "/config/secrets.yaml", content)

	assertContentEquals(t, backend, "/config/secrets.yaml", content)
}

// ============================================================================
// Remove Tests
// ============================================================================

func (suite *StoreTestSuite) testRemoveThenRetrieve(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/file", "content")
	mustRemove(t, backend, "/path/to/file")

	assertDoesNotExist(t, backend, "/path/to/file")
}

func (suite *StoreTestSuite) testRemoveLeavesOthers(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/a", "1")
	mustStore(t, backend, "/path/to/b", "2")
	mustRemove(t, backend, "/path/to/a")

	assertDoesNotExist(t, backend, "/path/to/a")
	assertContentEquals(t, backend, "/path/to/b", "2")
}
