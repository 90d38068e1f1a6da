package testing

import (
	"testing"

	"github.com/marmos91/larder/pkg/storage"
)

// RunDirectoryTests executes the hierarchy emulation tests.
func (suite *StoreTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("Remove_DirectorySweep", suite.testRemoveDirectorySweep)
	t.Run("Remove_NestedDirectory", suite.testRemoveNestedDirectory)
	t.Run("Retrieve_Directory", suite.testRetrieveDirectory)
	t.Run("Retrieve_AncestorDirectories", suite.testRetrieveAncestorDirectories)
	t.Run("SiblingPrefix_NotADirectory", suite.testSiblingPrefixNotADirectory)
	t.Run("FileAndDirectory_DirectoryWins", suite.testFileAndDirectory)
}

func (suite *StoreTestSuite) testRemoveDirectorySweep(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/a", "1")
	mustStore(t, backend, "/path/to/b", "2")
	mustStore(t, backend, "/other", "3")

	mustRemove(t, backend, "/path/to")

	assertDoesNotExist(t, backend, "/path/to/a")
	assertDoesNotExist(t, backend, "/path/to/b")
	assertContentEquals(t, backend, "/other", "3")
}

func (suite *StoreTestSuite) testRemoveNestedDirectory(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/a/b/c/d", "deep")
	mustStore(t, backend, "/a/b/e", "shallow")
	mustStore(t, backend, "/a/f", "kept")

	mustRemove(t, backend, "/a/b")

	assertDoesNotExist(t, backend, "/a/b/c/d")
	assertDoesNotExist(t, backend, "/a/b/e")
	assertContentEquals(t, backend, "/a/f", "kept")

	// The swept directory is gone too.
	_, err := backend.Retrieve(testContext(), p("/a/b"))
	AssertErrorIs(t, storage.PathDoesNotExist, err)
}

func (suite *StoreTestSuite) testRetrieveDirectory(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/secret/content", "x")

	assertIsDirectory(t, backend, "/path/to/secret")
}

func (suite *StoreTestSuite) testRetrieveAncestorDirectories(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/path/to/secret/content", "x")

	assertIsDirectory(t, backend, "/path/to")
	assertIsDirectory(t, backend, "/path")
}

func (suite *StoreTestSuite) testSiblingPrefixNotADirectory(t *testing.T) {
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/a/bc", "sibling")

	// "/a/b" is a string prefix of "/a/bc" but not a path ancestor.
	assertDoesNotExist(t, backend, "/a/b")

	err := backend.Remove(testContext(), p("/a/b"))
	AssertErrorIs(t, storage.PathDoesNotExist, err)

	assertContentEquals(t, backend, "/a/bc", "sibling")
}

func (suite *StoreTestSuite) testFileAndDirectory(t *testing.T) {
	if !suite.SupportsFileAndDirectory {
		t.Skip("Backend cannot hold content at a path with descendants")
	}
	backend := suite.NewBackend(t)

	mustStore(t, backend, "/node", "file")
	mustStore(t, backend, "/node/child", "child")

	assertIsDirectory(t, backend, "/node")
	assertContentEquals(t, backend, "/node/child", "child")

	mustRemove(t, backend, "/node")

	assertDoesNotExist(t, backend, "/node")
	assertDoesNotExist(t, backend, "/node/child")
}
