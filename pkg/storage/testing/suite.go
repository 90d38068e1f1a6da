package testing

import (
	"context"
	"testing"

	"github.com/marmos91/larder/pkg/storage"
)

// StoreTestSuite is a comprehensive test suite for storage.Backend
// implementations. It tests the interface contract, not implementation
// details, making it reusable across backends (memory, filesystem, badger,
// S3, redis).
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &storagetesting.StoreTestSuite{
//	        NewBackend: func(t *testing.T) storage.Backend {
//	            return mybackend.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewBackend is a factory function that creates a fresh, empty Backend
	// for each test. This ensures test isolation.
	NewBackend func(t *testing.T) storage.Backend

	// SupportsFileAndDirectory is true when the backend can hold content at
	// a path that also has descendants. Real filesystems cannot.
	SupportsFileAndDirectory bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("DirectoryOperations", suite.RunDirectoryTests)
	t.Run("Errors", suite.RunErrorTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
